package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/internal/session"
	"github.com/vadiminshakov/l2pay/internal/storage/journal"
	"github.com/vadiminshakov/l2pay/internal/store"
	"github.com/vadiminshakov/l2pay/internal/theme"
)

const journalPollInterval = 2 * time.Second

type journalReader interface {
	RecordsAfter(index uint64) ([]journal.Record, error)
}

type stateReader interface {
	State() store.State
}

type sessionReader interface {
	State() session.State
	Blocking() bool
}

type paletteReader interface {
	Palette() theme.Palette
}

// Server exposes the wallet status page, a JSON state projection and an SSE journal stream.
type Server struct {
	Addr     string
	l        *zap.Logger
	store    stateReader
	session  sessionReader
	journal  journalReader
	palette  paletteReader
	interval time.Duration
}

// NewServer creates a new web server instance. journal and palette may be nil.
func NewServer(l *zap.Logger, addr string, st stateReader, sess sessionReader, j journalReader, palette paletteReader) *Server {
	return &Server{
		Addr:     addr,
		l:        l,
		store:    st,
		session:  sess,
		journal:  j,
		palette:  palette,
		interval: journalPollInterval,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/journal/stream", s.handleJournalStream)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.l.Info("status page listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// BalanceView balance row of the state projection.
type BalanceView struct {
	Symbol  string          `json:"symbol"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
	Price   decimal.Decimal `json:"price"`
	Worth   decimal.Decimal `json:"worth"`
}

// HashView unacknowledged transaction hash.
type HashView struct {
	Hash string `json:"hash"`
	URL  string `json:"url,omitempty"`
}

// StateView JSON projection of the wallet state.
type StateView struct {
	Session       session.State               `json:"session"`
	Blocking      bool                        `json:"blocking"`
	Address       string                      `json:"address,omitempty"`
	AccountID     uint64                      `json:"accountId,omitempty"`
	Fiat          string                      `json:"fiat,omitempty"`
	SelectedAsset string                      `json:"selectedAsset,omitempty"`
	Balances      []BalanceView               `json:"balances"`
	Hashes        map[store.HashKind]HashView `json:"hashes,omitempty"`
	Loading       map[store.LoadingKind]bool  `json:"loading,omitempty"`
}

// NewStateView projects st.
func NewStateView(st store.State, state session.State, blocking bool) StateView {
	view := StateView{
		Session:  state,
		Blocking: blocking,
		Balances: make([]BalanceView, 0, len(st.Balances)),
	}
	if st.Session != nil {
		view.Address = st.Session.WalletAddress
		view.AccountID = st.Session.AccountID
	}
	if st.SelectedFiat != nil {
		view.Fiat = st.SelectedFiat.Name
	}
	if st.SelectedAsset != nil {
		view.SelectedAsset = st.SelectedAsset.Symbol
	}
	for _, b := range st.Balances {
		view.Balances = append(view.Balances, BalanceView{
			Symbol:  b.Symbol,
			Name:    b.Name,
			Balance: b.Balance,
			Price:   b.FiatValue,
			Worth:   b.Worth(),
		})
	}

	var chainID int64 = 1
	if st.Exchange != nil {
		chainID = st.Exchange.ChainID
	}
	for kind, hash := range st.Hashes {
		if hash == "" {
			continue
		}
		if view.Hashes == nil {
			view.Hashes = make(map[store.HashKind]HashView)
		}
		h := HashView{Hash: hash}
		// transfer hashes are layer-2 only
		if kind != store.HashTransfer {
			h.URL = domain.ExplorerTxURL(chainID, hash)
		}
		view.Hashes[kind] = h
	}

	for kind, n := range st.Loading {
		if n <= 0 {
			continue
		}
		if view.Loading == nil {
			view.Loading = make(map[store.LoadingKind]bool)
		}
		view.Loading[kind] = true
	}

	return view
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	p := theme.PaletteOf(domain.ThemeLight)
	if s.palette != nil {
		p = s.palette.Palette()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, p); err != nil {
		s.l.Error("render status page", zap.Error(err))
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, blocking := session.Anonymous, false
	if s.session != nil {
		state, blocking = s.session.State(), s.session.Blocking()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(NewStateView(s.store.State(), state, blocking)); err != nil {
		s.l.Error("encode state", zap.Error(err))
	}
}

func (s *Server) handleJournalStream(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(s.interval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendRecords := func() error {
		records, err := s.journal.RecordsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: %s\n", record.Kind)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			lastIndex = record.Index
		}
		if len(records) > 0 {
			flusher.Flush()
		}
		return nil
	}

	if err := sendRecords(); err != nil {
		http.Error(w, "failed to load journal", http.StatusInternalServerError)
		s.l.Error("journal stream initial load", zap.Error(err))
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendRecords(); err != nil {
				s.l.Warn("journal stream poll", zap.Error(err))
			}
		}
	}
}

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>l2pay</title>
  <style>
    body {
      margin:0;
      padding:2rem;
      background:{{.Background}};
      color:{{.Text}};
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app { max-width:960px; margin:0 auto; display:grid; gap:1.5rem; }
    .panel { background:{{.Foreground}}; padding:1.2rem; border-radius:6px; }
    .status { color:{{.Primary}}; text-transform:uppercase; letter-spacing:.1em; }
    .muted { color:{{.Placeholder}}; }
    .loader { color:{{.Loader}}; }
    table { width:100%; border-collapse:collapse; }
    td, th { padding:.4rem; text-align:left; }
    td.num { text-align:right; }
    .run.failed, .notification.error { color:{{.Error}}; }
    .run.aborted, .notification.warn { color:{{.Warning}}; }
    a { color:{{.Primary}}; }
  </style>
</head>
<body>
  <div id="app">
    <header class="panel">
      <div id="session" class="status">connecting…</div>
      <div id="account" class="muted"></div>
    </header>
    <section class="panel">
      <table>
        <thead><tr><th>Token</th><th>Balance</th><th>Price</th><th>Worth</th></tr></thead>
        <tbody id="balances"></tbody>
      </table>
    </section>
    <section class="panel" id="hashes"></section>
    <section class="panel"><ul id="journal"></ul></section>
  </div>
  <script>
    const el = (id) => document.getElementById(id);
    async function refresh() {
      const res = await fetch('/state');
      const st = await res.json();
      el('session').textContent = st.blocking ? st.session + ' (loading)' : st.session;
      el('account').textContent = st.address ? st.address + ' #' + st.accountId + ' ' + (st.fiat || '') : '';
      el('balances').innerHTML = '';
      for (const b of st.balances) {
        const row = document.createElement('tr');
        for (const v of [b.symbol, b.balance, b.price, b.worth]) {
          const td = document.createElement('td');
          td.textContent = v;
          row.appendChild(td);
        }
        if (b.symbol === st.selectedAsset) row.style.fontWeight = 'bold';
        el('balances').appendChild(row);
      }
      el('hashes').innerHTML = '';
      for (const [kind, h] of Object.entries(st.hashes || {})) {
        const line = document.createElement('div');
        const link = document.createElement(h.url ? 'a' : 'span');
        if (h.url) link.href = h.url;
        link.textContent = kind + ': ' + h.hash;
        line.appendChild(link);
        el('hashes').appendChild(line);
      }
    }
    function append(kind, rec) {
      const li = document.createElement('li');
      if (kind === 'notification') {
        li.className = 'notification ' + rec.notification.level;
        li.textContent = rec.time + ' ' + rec.notification.id + ' ' + (rec.notification.detail || '');
      } else {
        li.className = 'run ' + rec.status;
        li.textContent = rec.time + ' ' + rec.workflow + ' ' + rec.status + ' ' + (rec.hash || rec.error || '');
      }
      el('journal').prepend(li);
      refresh();
    }
    const source = new EventSource('/journal/stream');
    source.addEventListener('run', (e) => append('run', JSON.parse(e.data)));
    source.addEventListener('notification', (e) => append('notification', JSON.parse(e.data)));
    refresh();
    setInterval(refresh, 5000);
  </script>
</body>
</html>
`
