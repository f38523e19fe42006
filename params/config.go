// Package params loads host configuration and defines the genesis
// instrument set the exchange kernel is bootstrapped with.
package params

import (
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Config is the host control surface from the external interfaces: where
// the persistent arena lives, how large it is, whether this process
// should lay down a fresh genesis image, and where the JSON-RPC host
// backend should listen.
type Config struct {
	ImagePath          string
	VirtualStart       uint64
	Length             uint64
	Initialize         bool
	APIAddr            string
	RollupDriveLabel   string
	JournalPath        string
}

func Default() Config {
	return Config{
		ImagePath:        "data/lambada.img",
		VirtualStart:     0x1000000000,
		Length:           64 << 20, // 64MiB arena
		Initialize:       false,
		APIAddr:          ":8088",
		RollupDriveLabel: "lambada",
		JournalPath:      "data/journal",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and the
// environment. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("LAMBDA_IMAGE"); v != "" {
		cfg.ImagePath = v
	}
	if v := os.Getenv("LAMBDA_VIRTUAL_START"); v != "" {
		if n, err := strconv.ParseUint(v, 0, 64); err == nil {
			cfg.VirtualStart = n
		}
	}
	if v := os.Getenv("LAMBDA_LENGTH"); v != "" {
		if n, err := strconv.ParseUint(v, 0, 64); err == nil {
			cfg.Length = n
		}
	}
	if v := os.Getenv("LAMBDA_INITIALIZE"); v != "" {
		cfg.Initialize = v == "true" || v == "1"
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("LAMBDA_DRIVE_LABEL"); v != "" {
		cfg.RollupDriveLabel = v
	}
	if v := os.Getenv("LAMBDA_JOURNAL"); v != "" {
		cfg.JournalPath = v
	}

	return cfg
}

// Instrument is a genesis (base, quote) trading pair keyed by symbol.
type Instrument struct {
	Symbol string
	Base   common.Address
	Quote  common.Address
}

// ERC20PortalAddress is the address the rollup host attaches deposit
// inputs as msg_sender for, per the external interfaces.
var ERC20PortalAddress = common.HexToAddress("0x9C21AEb2093C32DDbC53eeF24B873BDCd1aDa1DB")

// Genesis token addresses, reproduced from the original dapp's hard-coded
// constants so every node boots with byte-identical instrument keys.
var (
	tokenADA  = common.HexToAddress("0xc6e7DF5E7b4f2A278906862b61205850344D4e7d")
	tokenBNB  = common.HexToAddress("0x59b670e9fA9D0A427751Af201D676719a970857b")
	tokenBTC  = common.HexToAddress("0x4ed7c70F96B99c776995fB64377f0d4aB3B0e1C1")
	tokenCTSI = common.HexToAddress("0x322813Fd9A801c5507c9de605d63CEA4f2CE6c44")
	tokenDAI  = common.HexToAddress("0xa85233C63b9Ee964Add6F2cffe00Fd84eb32338f")
	tokenDOGE = common.HexToAddress("0x4A679253410272dd5232B3Ff7cF5dbB88f295319")
	tokenSOL  = common.HexToAddress("0x7a2088a1bFc9d81c55368AE168C2C02570cB814F")
	tokenTON  = common.HexToAddress("0x09635F643e140090A9A8Dcd712eD6285858ceBef")
	tokenUSDT = common.HexToAddress("0xc5a5C42992dECbae36851359345FE25997F5C42d")
	tokenXRP  = common.HexToAddress("0x67d269191c92Caf3cD7723F116c85e6E9bf55933")
)

// GenesisInstruments returns the reference 13-pair instrument set the
// exchange is bootstrapped with, in the order the original dapp
// constructs them in. Instruments are immutable after this point: there
// is no later registration path.
func GenesisInstruments() []Instrument {
	return []Instrument{
		{"ADA/USDT", tokenADA, tokenUSDT},
		{"BNB/USDT", tokenBNB, tokenUSDT},
		{"BTC/USDT", tokenBTC, tokenUSDT},
		{"CTSI/USDT", tokenCTSI, tokenUSDT},
		{"DAI/USDT", tokenDAI, tokenUSDT},
		{"DOGE/USDT", tokenDOGE, tokenUSDT},
		{"SOL/USDT", tokenSOL, tokenUSDT},
		{"TON/USDT", tokenTON, tokenUSDT},
		{"XRP/USDT", tokenXRP, tokenUSDT},
		{"ADA/BTC", tokenADA, tokenBTC},
		{"BNB/BTC", tokenBNB, tokenBTC},
		{"CTSI/BTC", tokenCTSI, tokenBTC},
		{"XRP/BTC", tokenXRP, tokenBTC},
	}
}
