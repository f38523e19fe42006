// Command lambadex-emulator replays a directory of recorded rollup
// inputs against a persistent arena image using the file-replay host
// backend (pkg/host/emulator) — useful for integration tests and for
// checking determinism by replaying the same input sequence against a
// fresh genesis image and comparing the two output streams.
package main

import (
	"github.com/alecthomas/kong"

	"github.com/lambadex/lambadex/params"
	"github.com/lambadex/lambadex/pkg/arena"
	"github.com/lambadex/lambadex/pkg/dispatch"
	"github.com/lambadex/lambadex/pkg/exchange"
	"github.com/lambadex/lambadex/pkg/host/emulator"
	"github.com/lambadex/lambadex/pkg/journal"
	"github.com/lambadex/lambadex/pkg/util"
)

var cli struct {
	Env          string `help:"Path to a .env file to load before environment variables." default:""`
	Image        string `help:"Path to the persistent arena image file." default:"data/lambada.img"`
	VirtualStart uint64 `help:"Fixed virtual base address the arena identifies itself by." default:"68719476736"`
	Length       uint64 `help:"Arena length in bytes." default:"67108864"`
	Initialize   bool   `help:"Lay down a fresh genesis image, overwriting any existing one."`
	InputDir     string `help:"Directory of recorded <index>.advance / <index>.inspect input files." required:""`
	OutputDir    string `help:"Directory to write <index>.notice.N / <index>.voucher.N / <index>.report files." required:""`
	Journal      string `help:"Path to the durable input replay journal." default:"data/journal"`
	LogFile      string `help:"Path to the structured log file." default:"data/lambadex-emulator.log"`
}

func main() {
	kong.Parse(&cli, kong.Description("LambadeX file-replay rollup host backend"))

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
	if cli.Journal != "" {
		cfg.JournalPath = cli.Journal
	}

	logger, err := util.NewLoggerWithFile(cli.LogFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("starting", "image", cfg.ImagePath, "input_dir", cli.InputDir)

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

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		sugar.Fatalw("journal open failed", "err", err)
	}
	defer j.Close()

	d := dispatch.New(st, a, params.ERC20PortalAddress, sugar)
	h := &emulator.Harness{
		Dispatcher: d,
		Journal:    j,
		InputDir:   cli.InputDir,
		OutputDir:  cli.OutputDir,
		Log:        sugar,
	}
	if err := h.Run(); err != nil {
		sugar.Fatalw("replay failed", "err", err)
	}
	sugar.Infow("replay complete")
}
