package lexer

// Emoji-keyword table, carried over verbatim from the original lexer's
// check_emoji() codepoint switch so the emoji surface recognizes exactly the
// same symbols:
//
//	CONTROL FLOW          DECLARATIONS         MEMORY
//	❓ if                 🔧 fn               ✨ nw
//	❗ el                 📦 st               🗑  del
//	🔁 wh                🔌 ext
//	↩  ret               📥 use              MISC
//	🛑 brk                                    🔄 as
//	⏩ cont              NEW FEATURES         📏 sz
//	                      🔩 asm              ∅  null
//	TYPES                 ⚡ ct
//	🔢 i32   💧 i8    📊 i16   🔷 i64
//	🔶 u8    📈 u16   🔵 u32   💎 u64
//	🌊 f32   🌀 f64   ⬛ void
//
// emojiFE0F is the variation-selector-16 codepoint that may trail an emoji
// keyword; it is consumed and discarded, never part of the lookup.
const emojiFE0F = 0xFE0F

var emojiKeywords = map[rune]TokenType{
	// control flow
	0x2753:  TokenIf,   // ❓
	0x2757:  TokenEl,   // ❗
	0x1F501: TokenWh,   // 🔁
	0x21A9:  TokenRet,  // ↩
	0x1F6D1: TokenBreak, // 🛑
	0x23E9:  TokenContinue, // ⏩

	// declarations
	0x1F527: TokenFn,     // 🔧
	0x1F4E6: TokenStruct, // 📦
	0x1F50C: TokenExtern, // 🔌
	0x1F4E5: TokenUse,    // 📥

	// memory
	0x2728:  TokenNew,    // ✨
	0x1F5D1: TokenDelete, // 🗑

	// new features
	0x1F529: TokenAsm,      // 🔩
	0x26A1:  TokenComptime, // ⚡

	// misc
	0x1F504: TokenAs,     // 🔄
	0x1F4CF: TokenSizeof, // 📏
	0x2205:  TokenNull,   // ∅

	// signed integers
	0x1F4A7: TokenI8,  // 💧
	0x1F4CA: TokenI16, // 📊
	0x1F522: TokenI32, // 🔢
	0x1F537: TokenI64, // 🔷

	// unsigned integers
	0x1F536: TokenU8,  // 🔶
	0x1F4C8: TokenU16, // 📈
	0x1F535: TokenU32, // 🔵
	0x1F48E: TokenU64, // 💎

	// floats
	0x1F30A: TokenF32, // 🌊
	0x1F300: TokenF64, // 🌀

	// void
	0x2B1B: TokenVoid, // ⬛
}

// clibAliases maps emoji symbols that stand in for common C standard library
// function names to the ASCII identifier the parser and code generator
// should see instead. These resolve to TokenIdentifier, not a keyword, since
// printf and friends are ordinary externs declared by the prelude, not
// language keywords.
//
// This table is disjoint from emojiKeywords: no codepoint appears in both.
var clibAliases = map[rune]string{
	0x1F5A8: "printf",  // 🖨 (printer)
	0x1F4DD: "sprintf", // 📝 (memo)
	0x1F4D6: "fopen",   // 📖 (open book)
	0x1F4D5: "fclose",  // 📕 (closed book)
	0x1F4E4: "fwrite",  // 📤 (outbox)
	0x1F4E9: "fread",   // 📩 (inbox)
	0x1F9EE: "atoi",    // 🧮 (abacus)
}
