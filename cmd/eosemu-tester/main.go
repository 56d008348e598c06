// Command eosemu-tester drives one emulated platform through a short
// session: login, profile and ownership queries, a player data write and its
// read back.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"

	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/metrics"
	"github.com/linchenxuan/eosemu/platform"
	"github.com/linchenxuan/eosemu/plugin"
	"github.com/linchenxuan/eosemu/services/auth"
	"github.com/linchenxuan/eosemu/services/ecom"
	"github.com/linchenxuan/eosemu/services/playerdatastorage"
	"github.com/linchenxuan/eosemu/services/userinfo"
)

const testFile = "eosemu-tester.sav"

type config struct {
	settingsPath string
	savePath     string
	ticks        int
	tickInterval time.Duration
	metricsAddr  string
	writeSize    int
	chunk        int
	items        []string
}

func parseFlags() *config {
	c := &config{}
	flag.StringVar(&c.settingsPath, "settings", "", "settings file (default NemirtingasEpicEmu.json)")
	flag.StringVar(&c.savePath, "savepath", "", "override the save directory")
	flag.IntVar(&c.ticks, "ticks", 1000, "maximum number of pump cycles")
	flag.DurationVar(&c.tickInterval, "tick-interval", 16*time.Millisecond, "time between pump cycles")
	flag.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flag.IntVar(&c.writeSize, "write-size", 1<<20, "bytes written to player data storage")
	flag.IntVar(&c.chunk, "chunk", 64<<10, "transfer chunk size")
	flag.StringSliceVar(&c.items, "items", []string{"base-game", "dlc1"}, "catalog items to query")
	flag.Parse()
	return c
}

func main() {
	cfg := parseFlags()
	if cfg.ticks <= 0 || cfg.tickInterval <= 0 || cfg.writeSize < 0 || cfg.chunk <= 0 {
		fmt.Fprintln(os.Stderr, "ticks, tick-interval and chunk must be positive")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "eosemu-tester: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config) error {
	overrides := map[string]any{}
	if cfg.savePath != "" {
		overrides["savepath"] = cfg.savePath
	}
	if cfg.metricsAddr != "" {
		overrides["plugin.metrics.prometheus.namespace"] = "eosemu"
	}

	p, err := platform.Create(platform.Options{
		ProductID:    "eosemu-tester",
		SandboxID:    "tester",
		DeploymentID: "tester",
		ClientID:     "eosemu-tester",
		SettingsPath: cfg.settingsPath,
		EnvFile:      ".env",
		Overrides:    overrides,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Release(); err != nil {
			log.Error().Err(err).Msg("release")
		}
		log.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if cfg.metricsAddr != "" {
		handler, err := metricsHandler(p)
		if err != nil {
			return err
		}
		srv := &http.Server{Addr: cfg.metricsAddr, Handler: handler}
		g.Go(func() error {
			log.Info().Str("addr", cfg.metricsAddr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdown, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			return srv.Shutdown(shutdown)
		})
	}

	s := newSession(p, cfg)
	g.Go(func() error {
		defer cancel()
		return s.pump(ctx, cfg.ticks, cfg.tickInterval)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.report(os.Stdout)
	if !s.finished() {
		return fmt.Errorf("session incomplete after %d ticks", s.tickCount)
	}
	return nil
}

func metricsHandler(p *platform.Platform) (http.Handler, error) {
	pl, err := p.Plugins().GetPlugin(plugin.Metrics, "prometheus")
	if err != nil {
		return nil, err
	}
	reporter, ok := pl.(*metrics.PrometheusReporter)
	if !ok {
		return nil, fmt.Errorf("unexpected metrics plugin %T", pl)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", reporter.Handler())
	return mux, nil
}

// session chains the test steps. Every step starts from the completion
// callback of the previous one.
type session struct {
	p   *platform.Platform
	cfg *config

	content []byte
	written int
	read    bytes.Buffer

	account   eos.EpicAccountID
	login     eos.Result
	profile   eos.Result
	name      string
	ownership []ecom.ItemOwnership
	owned     eos.Result
	write     eos.Result
	readBack  eos.Result
	done      bool
	tickCount int
	elapsed   time.Duration
}

func newSession(p *platform.Platform, cfg *config) *session {
	content := make([]byte, cfg.writeSize)
	for i := range content {
		content[i] = byte('a' + i%26)
	}
	return &session{
		p:        p,
		cfg:      cfg,
		content:  content,
		login:    eos.NotConfigured,
		profile:  eos.NotConfigured,
		owned:    eos.NotConfigured,
		write:    eos.NotConfigured,
		readBack: eos.NotConfigured,
	}
}

func (s *session) finished() bool { return s.done }

// pump ticks the platform until the session completes, the tick budget is
// spent or ctx ends.
func (s *session) pump(ctx context.Context, ticks int, interval time.Duration) error {
	res := s.p.Auth().Login(&auth.LoginOptions{Credentials: &auth.Credentials{Type: auth.CredentialDeveloper}},
		nil, s.onLogin)
	if res != eos.Success {
		return fmt.Errorf("login rejected: %s", res)
	}

	rl := ratelimit.New(1, ratelimit.Per(interval))
	start := time.Now()
	for s.tickCount < ticks && !s.done {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		rl.Take()
		if err := s.p.Tick(); err != nil {
			return err
		}
		s.tickCount++
	}
	s.elapsed = time.Since(start)
	return nil
}

func (s *session) onLogin(info *auth.LoginCallbackInfo) {
	s.login = info.ResultCode
	s.account = info.LocalUserID
	if info.ResultCode != eos.Success {
		s.done = true
		return
	}
	s.profile = s.p.UserInfo().QueryUserInfo(&userinfo.QueryUserInfoOptions{LocalUserID: info.LocalUserID, TargetUserID: info.LocalUserID},
		nil, s.onProfile)
	res := s.p.Ecom().QueryOwnership(&ecom.QueryOwnershipOptions{LocalUserID: info.LocalUserID, CatalogItemIDs: s.cfg.items},
		nil, s.onOwnership)
	if res != eos.Success {
		s.owned = res
		s.done = true
	}
}

func (s *session) onProfile(info *userinfo.QueryUserInfoCallbackInfo) {
	s.profile = info.ResultCode
	if info.ResultCode != eos.Success {
		return
	}
	if u, res := s.p.UserInfo().CopyUserInfo(&userinfo.CopyUserInfoOptions{LocalUserID: info.LocalUserID, TargetUserID: info.TargetUserID}); res == eos.Success {
		s.name = u.DisplayName
	}
}

func (s *session) onOwnership(info *ecom.QueryOwnershipCallbackInfo) {
	s.owned = info.ResultCode
	s.ownership = info.ItemOwnership

	req, res := s.p.PlayerDataStorage().WriteFile(&playerdatastorage.WriteFileOptions{
		Filename:              testFile,
		ChunkLengthBytes:      s.cfg.chunk,
		WriteFileDataCallback: s.writeChunk,
	}, nil, s.onWritten)
	if req != nil {
		req.Release()
	}
	if res != eos.Success {
		s.write = res
		s.done = true
	}
}

func (s *session) writeChunk(info *playerdatastorage.WriteFileDataCallbackInfo, out []byte) (int, playerdatastorage.WriteResult) {
	n := copy(out[:info.DataBufferLengthBytes], s.content[s.written:])
	s.written += n
	if s.written == len(s.content) {
		return n, playerdatastorage.WriteComplete
	}
	return n, playerdatastorage.WriteContinue
}

func (s *session) onWritten(info *playerdatastorage.WriteFileCallbackInfo) {
	s.write = info.ResultCode
	if info.ResultCode != eos.Success {
		s.done = true
		return
	}
	req, res := s.p.PlayerDataStorage().ReadFile(&playerdatastorage.ReadFileOptions{
		Filename:             testFile,
		ReadChunkLengthBytes: s.cfg.chunk,
		ReadFileDataCallback: func(info *playerdatastorage.ReadFileDataCallbackInfo) playerdatastorage.ReadResult {
			s.read.Write(info.DataChunk)
			return playerdatastorage.ReadContinue
		},
	}, nil, s.onRead)
	if req != nil {
		req.Release()
	}
	if res != eos.Success {
		s.readBack = res
		s.done = true
	}
}

func (s *session) onRead(info *playerdatastorage.ReadFileCallbackInfo) {
	s.readBack = info.ResultCode
	if info.ResultCode == eos.Success && !bytes.Equal(s.read.Bytes(), s.content) {
		s.readBack = eos.PlayerDataStorageDataInvalid
	}
	s.done = true
}

func (s *session) report(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "eosemu-tester results\n")
	fmt.Fprintf(w, "  Ticks:      %d (%s)\n", s.tickCount, s.elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  Login:      %s %s\n", s.login, s.account)
	fmt.Fprintf(w, "  Profile:    %s %s\n", s.profile, s.name)
	fmt.Fprintf(w, "  Ownership:  %s\n", s.owned)
	for _, item := range s.ownership {
		fmt.Fprintf(w, "    %-20s %s\n", item.ID, item.OwnershipStatus)
	}
	fmt.Fprintf(w, "  Write:      %s (%d bytes)\n", s.write, s.written)
	fmt.Fprintf(w, "  Read back:  %s (%d bytes)\n", s.readBack, s.read.Len())
	fmt.Fprintf(w, "\n")
}
