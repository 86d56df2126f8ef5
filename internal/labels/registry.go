package labels

import "strings"

// Label names a known contract address and its category.
type Label struct {
	Name     string
	Category Category
}

// addresses maps a lowercase hex address to its label. Built once at
// init and never mutated afterward — lookups are pure.
var addresses = map[string]Label{
	// DEXes
	"0x2626664c2603336e57b271c5c0b26f421741e481": {"Uniswap V3 Router", Dex},
	"0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad": {"Uniswap Universal Router", Dex},
	"0xcf77a3ba9a5ca399b7c97c74d54e5b1beb874e43": {"Aerodrome Router", Dex},
	"0x6cb442acf35158d5eda88fe602221b67b400be3e": {"Aerodrome V2 Router", Dex},
	"0x327df1e6de05895d2ab08513aadd9313fe505d86": {"BaseSwap Router", Dex},
	"0x1b8eea9315be495187d873da7773a874545d9d48": {"SushiSwap Router", Dex},
	"0xd9aac140860e5b0abd5e1d8a3b3a39e09cccc517": {"Odos Router", Dex},

	// Bridges
	"0x4200000000000000000000000000000000000010": {"L2 Standard Bridge", Bridge},
	"0x4200000000000000000000000000000000000007": {"L2 Cross Domain Messenger", Bridge},
	"0x3154cf16ccdb4c6d922629664174b904d80f2c35": {"Base Bridge", Bridge},
	"0xaf28bcb48c40dbc86f52d459a6562f658fc94b1e": {"Stargate Bridge", Bridge},
	"0x1a44076050125825900e736c501f859c50fe728c": {"LayerZero Endpoint", Bridge},

	// Tokens
	"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913": {"USDC", Token},
	"0x50c5725949a6f0c72e6c4a641f24049a917db0cb": {"DAI", Token},
	"0x4200000000000000000000000000000000000006": {"WETH", Token},
	"0x2ae3f1ec7f1f5012cfeab0185bfc7aa3cf0dec22": {"cbETH", Token},
	"0xd9aaec86b65d86f6a7b5b1b0c42ffa531710b6ca": {"USDbC", Token},
	"0xb6fe221fe9eef5aba221c348ba20a1bf5e73624c": {"rETH", Token},

	// Lending
	"0xa238dd80c259a72e81d7e4664a9801593f98d1c5": {"Aave V3 Pool", Lending},
	"0x9c4ec768c28520b50860ea7a15bd7213a9ff58bf": {"Compound V3 USDC", Lending},
	"0x46e6b214b524310239732d51387075e0e70970bf": {"Moonwell", Lending},

	// NFT
	"0x00000000000000adc04c56bf30ac9d3c0aaf14dc": {"Seaport 1.5", Nft},
	"0x0000000000000068f116a894984e2db1123eb395": {"Seaport 1.6", Nft},

	// System
	"0x4200000000000000000000000000000000000015": {"L1Block", System},
	"0x4200000000000000000000000000000000000011": {"Sequencer Fee Vault", System},
	"0x420000000000000000000000000000000000001a": {"Base Fee Vault", System},
	"0xdeaddeaddeaddeaddeaddeaddeaddeaddead0001": {"L1 Attributes Depositor", System},
}

// selectors maps a 4-byte function selector to its canonical action
// name.
var selectors = map[[4]byte]string{
	// ERC20
	sel4("a9059cbb"): "transfer",
	sel4("23b872dd"): "transferFrom",
	sel4("095ea7b3"): "approve",

	// DEX — Uniswap
	sel4("3593564c"): "execute (Universal Router)",
	sel4("38ed1739"): "swapExactTokensForTokens",
	sel4("7ff36ab5"): "swapExactETHForTokens",
	sel4("18cbafe5"): "swapExactTokensForETH",
	sel4("5ae401dc"): "multicall",
	sel4("ac9650d8"): "multicall (v2)",
	sel4("04e45aaf"): "exactInputSingle",
	sel4("b858183f"): "exactInput",
	sel4("414bf389"): "exactInputSingle (v3)",

	// Aerodrome
	sel4("b6f9de95"): "swapExactETHForTokens (fee)",
	sel4("cac88ea9"): "swapExactTokensForTokens (Aero)",

	// Bridge
	sel4("32b7006d"): "depositETHTo",
	sel4("a3a79548"): "depositERC20To",

	// Lending
	sel4("617ba037"): "supply (Aave)",
	sel4("69328dec"): "withdraw (Aave)",
	sel4("c5ebeaec"): "borrow (Aave)",
	sel4("573ade81"): "repay (Aave)",
	sel4("f2b9fdb8"): "supply (Compound)",

	// NFT
	sel4("fb0f3ee1"): "fulfillBasicOrder (Seaport)",
	sel4("87201b41"): "fulfillOrder (Seaport)",
	sel4("42842e0e"): "safeTransferFrom (ERC721)",

	// General
	sel4("d0e30db0"): "deposit (wrap ETH)",
	sel4("2e1a7d4d"): "withdraw (unwrap ETH)",
}

func sel4(hexStr string) [4]byte {
	var out [4]byte
	for i := range out {
		out[i] = hexNibble(hexStr[i*2])<<4 | hexNibble(hexStr[i*2+1])
	}
	return out
}

func hexNibble(b byte) byte {
	switch {
	case '0' <= b && b <= '9':
		return b - '0'
	case 'a' <= b && b <= 'f':
		return b - 'a' + 10
	case 'A' <= b && b <= 'F':
		return b - 'A' + 10
	default:
		panic("labels: invalid hex literal in compile-time table")
	}
}

// LookupAddress returns the label for a lowercase hex address, if
// known. Pure and safe to call from any goroutine.
func LookupAddress(addrLower string) (Label, bool) {
	l, ok := addresses[addrLower]
	return l, ok
}

// LookupSelector returns the canonical action name for a 4-byte
// function selector, if known.
func LookupSelector(sel [4]byte) (string, bool) {
	name, ok := selectors[sel]
	return name, ok
}

// ToLower lowercases a hex string the way callers must before calling
// LookupAddress — kept here so decode call sites don't reimplement the
// same ASCII-only fast path strings.ToLower already provides.
func ToLower(s string) string {
	return strings.ToLower(s)
}
