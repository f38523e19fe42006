// Command lambadex-rpc runs the JSON-RPC/HTTP + WebSocket rollup host
// backend (pkg/host/rpcserver) against a persistent arena image.
package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/lambadex/lambadex/params"
	"github.com/lambadex/lambadex/pkg/arena"
	"github.com/lambadex/lambadex/pkg/dispatch"
	"github.com/lambadex/lambadex/pkg/exchange"
	"github.com/lambadex/lambadex/pkg/host/rpcserver"
	"github.com/lambadex/lambadex/pkg/journal"
	"github.com/lambadex/lambadex/pkg/util"
)

var cli struct {
	Env          string `help:"Path to a .env file to load before environment variables." default:""`
	Image        string `help:"Path to the persistent arena image file." default:"data/lambada.img"`
	VirtualStart uint64 `help:"Fixed virtual base address the arena identifies itself by." default:"68719476736"`
	Length       uint64 `help:"Arena length in bytes." default:"67108864"`
	Initialize   bool   `help:"Lay down a fresh genesis image, overwriting any existing one."`
	Addr         string `help:"HTTP/WebSocket listen address." default:":8088"`
	Journal      string `help:"Path to the durable input replay journal." default:"data/journal"`
	LogFile      string `help:"Path to the structured log file." default:"data/lambadex-rpc.log"`
}

func main() {
	kong.Parse(&cli, kong.Description("LambadeX JSON-RPC/HTTP host backend"))

	cfg := params.LoadFromEnv(cli.Env)
	if cli.Image != "" {
		cfg.ImagePath = cli.Image
	}
	if cli.VirtualStart != 0 {
		cfg.VirtualStart = cli.VirtualStart
	}
	if cli.Length != 0 {
		cfg.Length = cli.Length
	}
	cfg.Initialize = cfg.Initialize || cli.Initialize
	if cli.Addr != "" {
		cfg.APIAddr = cli.Addr
	}
	if cli.Journal != "" {
		cfg.JournalPath = cli.Journal
	}

	logger, err := util.NewLoggerWithFile(cli.LogFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("starting", "image", cfg.ImagePath, "addr", cfg.APIAddr)

	a, err := arena.Open(cfg.ImagePath, cfg.VirtualStart, cfg.Length, cfg.Initialize)
	if err != nil {
		sugar.Fatalw("arena open failed", "err", err)
	}
	defer a.Close()

	st, err := loadOrGenesisState(a)
	if err != nil {
		sugar.Fatalw("state load failed", "err", err)
	}

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		sugar.Fatalw("journal open failed", "err", err)
	}
	defer j.Close()

	d := dispatch.New(st, a, params.ERC20PortalAddress, sugar)
	server := rpcserver.NewServer(d, sugar)

	if err := server.Start(cfg.APIAddr); err != nil {
		sugar.Fatalw("server stopped", "err", err)
	}
	os.Exit(0)
}

func loadOrGenesisState(a *arena.Arena) (*exchange.State, error) {
	if snap := a.LoadSnapshot(); snap != nil {
		return exchange.Restore(snap)
	}
	instruments := make([]exchange.Instrument, 0, len(params.GenesisInstruments()))
	for _, in := range params.GenesisInstruments() {
		instruments = append(instruments, exchange.Instrument{Symbol: in.Symbol, Base: in.Base, Quote: in.Quote})
	}
	return exchange.NewState(instruments), nil
}
