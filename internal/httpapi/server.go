// Package httpapi serves health, metrics and read-only marketplace views.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/db"
)

const (
	journalLimit      = 50
	readHeaderTimeout = 5 * time.Second
)

type (
	Balances interface {
		Balance(ctx context.Context, member string) (decimal.Decimal, error)
	}

	Market interface {
		Requests(ctx context.Context) (db.Requests, error)
	}

	Verifications interface {
		Pending(ctx context.Context) (db.PendingDMs, error)
	}

	Deps struct {
		Balances      Balances
		Market        Market
		Verifications Verifications
		// Journal is optional; balances are served without history when nil.
		Journal  db.Journal
		Registry *prometheus.Registry
	}

	Server struct {
		addr   string
		deps   Deps
		engine *gin.Engine

		mu       sync.Mutex
		srv      *http.Server
		listener net.Listener
		wg       sync.WaitGroup
	}

	requestView struct {
		ID           string    `json:"id"`
		RequesterID  string    `json:"requester_id"`
		Link         string    `json:"link"`
		OpenComments int       `json:"open_comments"`
		Comments     int       `json:"comments"`
		Likes        int       `json:"likes"`
		Retweets     int       `json:"retweets"`
		Follows      int       `json:"follows"`
		ExpiresAt    time.Time `json:"expires_at"`
	}
)

func NewServer(addr string, deps Deps) *Server {
	s := &Server{addr: addr, deps: deps, engine: gin.New()}
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.routes()
	return s
}

func (s *Server) getLogEntry() *log.Entry {
	return log.WithField("component", "httpapi")
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.deps.Registry != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))
	}

	v1 := s.engine.Group("/v1")
	{
		v1.GET("/balances/:member", s.balance)
		v1.GET("/requests", s.requests)
		v1.GET("/verifications", s.verifications)
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.getLogEntry().
			WithField("method", c.Request.Method).
			WithField("path", c.FullPath()).
			WithField("status", c.Writer.Status()).
			WithField("took", time.Since(started).String()).
			Trace("request served")
	}
}

func (s *Server) fail(c *gin.Context, err error, what string) {
	s.getLogEntry().WithField("error", err.Error()).Error(what)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func (s *Server) balance(c *gin.Context) {
	member := c.Param("member")
	balance, err := s.deps.Balances.Balance(c.Request.Context(), member)
	if err != nil {
		s.fail(c, err, "cant read balance")
		return
	}
	res := gin.H{"member": member, "balance": balance}
	if s.deps.Journal != nil {
		entries, err := s.deps.Journal.JournalFor(c.Request.Context(), member, journalLimit)
		if err != nil {
			s.fail(c, err, "cant read journal")
			return
		}
		if entries == nil {
			entries = []db.JournalEntry{}
		}
		res["journal"] = entries
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) requests(c *gin.Context) {
	requests, err := s.deps.Market.Requests(c.Request.Context())
	if err != nil {
		s.fail(c, err, "cant read requests")
		return
	}
	views := make([]requestView, 0, len(requests))
	for _, req := range requests {
		view := requestView{
			ID:          req.ID,
			RequesterID: req.RequesterID,
			Link:        req.Link,
			Likes:       len(req.LikedBy),
			Retweets:    len(req.RetweetedBy),
			Follows:     len(req.FollowedBy),
			ExpiresAt:   req.ExpiresAt,
		}
		for _, task := range req.Tasks {
			if task.Type != db.TaskComment {
				continue
			}
			view.Comments++
			if task.Status == db.TaskOpen {
				view.OpenComments++
			}
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ExpiresAt.Before(views[j].ExpiresAt) })
	c.JSON(http.StatusOK, gin.H{"requests": views})
}

func (s *Server) verifications(c *gin.Context) {
	pending, err := s.deps.Verifications.Pending(c.Request.Context())
	if err != nil {
		s.fail(c, err, "cant read verifications")
		return
	}
	list := make([]*db.PendingVerification, 0, len(pending))
	for _, pv := range pending {
		list = append(list, pv)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	c.JSON(http.StatusOK, gin.H{"verifications": list})
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = listener
	s.srv = &http.Server{Handler: s.engine, ReadHeaderTimeout: readHeaderTimeout}
	srv := s.srv
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.getLogEntry().WithField("error", err.Error()).Error("http server stopped")
		}
	}()
	s.getLogEntry().WithField("addr", listener.Addr().String()).Info("http api listening")
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.wg.Wait()
	return nil
}
