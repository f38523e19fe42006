// Command lambadex-device drives the exchange kernel from the Cartesi
// rollup kernel device (pkg/host/device) — the backend used when this
// process runs inside the actual rollup execution environment.
package main

import (
	"github.com/alecthomas/kong"

	"github.com/lambadex/lambadex/params"
	"github.com/lambadex/lambadex/pkg/arena"
	"github.com/lambadex/lambadex/pkg/dispatch"
	"github.com/lambadex/lambadex/pkg/exchange"
	"github.com/lambadex/lambadex/pkg/host/device"
	"github.com/lambadex/lambadex/pkg/util"
)

var cli struct {
	Env          string `help:"Path to a .env file to load before environment variables." default:""`
	Image        string `help:"Path to the persistent arena image file." default:"data/lambada.img"`
	VirtualStart uint64 `help:"Fixed virtual base address the arena identifies itself by." default:"68719476736"`
	Length       uint64 `help:"Arena length in bytes." default:"67108864"`
	Initialize   bool   `help:"Lay down a fresh genesis image, overwriting any existing one."`
	Device       string `help:"Path to the rollup kernel device." default:"/dev/rollup"`
	LogFile      string `help:"Path to the structured log file." default:"data/lambadex-device.log"`
}

func main() {
	kong.Parse(&cli, kong.Description("LambadeX Cartesi rollup kernel-device host backend"))

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

	logger, err := util.NewLoggerWithFile(cli.LogFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("starting", "image", cfg.ImagePath, "device", cli.Device)

	a, err := arena.Open(cfg.ImagePath, cfg.VirtualStart, cfg.Length, cfg.Initialize)
	if err != nil {
		sugar.Fatalw("arena open failed", "err", err)
	}
	defer a.Close()

	var st *exchange.State
	if snap := a.LoadSnapshot(); snap != nil {
		st, err = exchange.Restore(snap)
	} else {
		instruments := make([]exchange.Instrument, 0, len(params.GenesisInstruments()))
		for _, in := range params.GenesisInstruments() {
			instruments = append(instruments, exchange.Instrument{Symbol: in.Symbol, Base: in.Base, Quote: in.Quote})
		}
		st = exchange.NewState(instruments)
	}
	if err != nil {
		sugar.Fatalw("state load failed", "err", err)
	}

	d := dispatch.New(st, a, params.ERC20PortalAddress, sugar)
	backend := &device.Backend{Dispatcher: d, DevicePath: cli.Device, Log: sugar}
	if err := backend.Run(); err != nil {
		sugar.Fatalw("device backend stopped", "err", err)
	}
}
