// Package bootstrap implements the non-Kubernetes team discovery path:
// a small HTTP rendezvous server units POST their address to, guarded
// by a signed join token, with an in-memory registry backing the
// roster until every expected unit has checked in. Nothing here
// persists past process exit (buntdb runs in ":memory:" mode), which
// keeps it consistent with spec §6.4 ("Persistent state: None").
package bootstrap

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/tidwall/buntdb"
	"github.com/valyala/fasthttp"

	"github.com/Rodario/dash/internal/nlog"
	"github.com/Rodario/dash/team"
)

type joinClaims struct {
	jwt.RegisteredClaims
}

// SignJoinToken produces the short-lived token a unit presents to the
// rendezvous server when joining.
func SignJoinToken(secret string, ttl time.Duration) (string, error) {
	claims := joinClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

func verifyJoinToken(secret, token string) error {
	_, err := jwt.ParseWithClaims(token, &joinClaims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	return err
}

// Server is the rendezvous server. Run it on exactly one well-known
// unit (or a sidecar process); every unit, including that one, still
// goes through Join/Roster like any other client.
type Server struct {
	Expected int
	Secret   string

	mu   sync.Mutex
	db   *buntdb.DB
	next int
	srv  *fasthttp.Server
}

// NewServer opens the in-memory rendezvous registry.
func NewServer(expected int, secret string) (*Server, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open registry: %w", err)
	}
	return &Server{Expected: expected, Secret: secret, db: db}, nil
}

// ListenAndServe blocks serving the rendezvous HTTP API on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.srv = &fasthttp.Server{Handler: s.handle}
	nlog.Infoln("bootstrap: rendezvous server listening", addr)
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown()
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/join":
		s.handleJoin(ctx)
	case "/roster":
		s.handleRoster(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

type joinRequest struct {
	Token string `json:"token"`
	Addr  string `json:"addr"`
}

func (s *Server) handleJoin(ctx *fasthttp.RequestCtx) {
	var req joinRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}
	if err := verifyJoinToken(s.Secret, req.Token); err != nil {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	ord := s.next
	s.next++
	s.mu.Unlock()

	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(fmt.Sprintf("unit:%d", ord), req.Addr, nil)
		return err
	})
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	_ = json.NewEncoder(ctx).Encode(map[string]int{"ordinal": ord})
}

func (s *Server) handleRoster(ctx *fasthttp.RequestCtx) {
	var eps []team.Endpoint
	_ = s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("unit:*", func(key, value string) bool {
			var ord int
			fmt.Sscanf(key, "unit:%d", &ord)
			eps = append(eps, team.Endpoint{Ordinal: ord, Addr: value})
			return true
		})
	})
	if len(eps) < s.Expected {
		ctx.SetStatusCode(fasthttp.StatusAccepted)
		return
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].Ordinal < eps[j].Ordinal })
	ctx.SetStatusCode(fasthttp.StatusOK)
	_ = json.NewEncoder(ctx).Encode(eps)
}
