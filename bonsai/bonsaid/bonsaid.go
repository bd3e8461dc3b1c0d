// Package bonsaid is a development stand-in for the remote proving service.
// It speaks the same REST surface the bonsai client consumes: presigned
// artifact uploads, session creation, status polling, receipt download.
// Proof jobs run on an in-process executor and artifacts live in a
// content-addressed store, so a host pointed at a bonsaid instance goes
// through the full remote path without leaving the machine.
package bonsaid

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ipfs/go-cid"

	"github.com/shaorongqiang/bitcoin-block-verify/bonsai"
	"github.com/shaorongqiang/bitcoin-block-verify/storage"
	"github.com/shaorongqiang/bitcoin-block-verify/zkvm"
)

// Config carries the listen address and the API key uploads and polls must
// present. An empty APIKey disables authentication.
type Config struct {
	Addr   string
	APIKey string
}

// ServerDeps are the collaborators a Server needs. Nil fields get
// in-memory defaults.
type ServerDeps struct {
	Executor *zkvm.Executor
	Store    storage.Store
}

const (
	kindImage = "images"
	kindInput = "inputs"
)

type artifact struct {
	kind string
	cid  cid.Cid
}

type session struct {
	status     string
	receiptCID cid.Cid
	failure    string
}

// Server implements the proving service protocol over gin.
type Server struct {
	cfg   Config
	r     *gin.Engine
	exec  *zkvm.Executor
	store storage.Store

	mu        sync.Mutex
	artifacts map[string]artifact
	sessions  map[string]*session
}

// NewServer builds a Server. Programs must already be registered on the
// executor; an image whose identity matches no registered program fails its
// session rather than the upload.
func NewServer(cfg Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:       cfg,
		r:         r,
		exec:      deps.Executor,
		store:     deps.Store,
		artifacts: make(map[string]artifact),
		sessions:  make(map[string]*session),
	}
	if s.exec == nil {
		s.exec = zkvm.NewExecutor(zkvm.WithProofGeneration())
	}
	if s.store == nil {
		s.store = storage.NewMemStore()
	}
	s.routes()
	return s
}

// Handler exposes the router, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8081"
	}
	log.Printf("bonsaid listening on %s", addr)
	return s.r.Run(addr)
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := s.r.Group("/", s.requireAPIKey)
	{
		authed.GET("/images/upload", s.handleUploadLocation(kindImage))
		authed.GET("/inputs/upload", s.handleUploadLocation(kindInput))
		authed.PUT("/upload/:kind/:uuid", s.handleUpload)
		authed.POST("/sessions/create", s.handleCreateSession)
		authed.GET("/sessions/status/:uuid", s.handleSessionStatus)
		authed.GET("/receipts/:cid", s.handleReceipt)
	}
}

func (s *Server) requireAPIKey(c *gin.Context) {
	if s.cfg.APIKey == "" {
		return
	}
	if c.GetHeader("x-api-key") != s.cfg.APIKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid api key"})
	}
}

// handleUploadLocation hands out a fresh artifact UUID and the URL to PUT
// its bytes to. The URL points back at this server.
func (s *Server) handleUploadLocation(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		s.mu.Lock()
		s.artifacts[id] = artifact{kind: kind}
		s.mu.Unlock()
		c.JSON(http.StatusOK, bonsai.UploadRes{
			URL:  fmt.Sprintf("%s/upload/%s/%s", baseURL(c), kind, id),
			UUID: id,
		})
	}
}

func (s *Server) handleUpload(c *gin.Context) {
	kind := c.Param("kind")
	id := c.Param("uuid")

	s.mu.Lock()
	art, ok := s.artifacts[id]
	s.mu.Unlock()
	if !ok || art.kind != kind {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown upload location"})
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read upload body: " + err.Error()})
		return
	}
	artCID, err := s.store.Put(data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store artifact: " + err.Error()})
		return
	}

	s.mu.Lock()
	s.artifacts[id] = artifact{kind: kind, cid: artCID}
	s.mu.Unlock()
	c.Status(http.StatusOK)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req bonsai.ProofReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	img, ok := s.lookupArtifact(req.Img, kindImage)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown image " + req.Img})
		return
	}
	input, ok := s.lookupArtifact(req.Input, kindInput)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown input " + req.Input})
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{status: bonsai.StatusRunning}
	s.mu.Unlock()

	go s.runSession(id, img.cid, input.cid)
	c.JSON(http.StatusOK, bonsai.CreateSessRes{UUID: id})
}

func (s *Server) lookupArtifact(id, kind string) (artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	art, ok := s.artifacts[id]
	if !ok || art.kind != kind || !art.cid.Defined() {
		return artifact{}, false
	}
	return art, true
}

// runSession executes one proof job. The image's program identity is the
// digest of its uploaded bytes, so only images matching a registered
// program can prove.
func (s *Server) runSession(id string, imgCID, inputCID cid.Cid) {
	fail := func(err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		st := s.sessions[id]
		st.status = bonsai.StatusFailed
		st.failure = err.Error()
	}

	image, err := s.store.Get(imgCID)
	if err != nil {
		fail(fmt.Errorf("load image: %w", err))
		return
	}
	input, err := s.store.Get(inputCID)
	if err != nil {
		fail(fmt.Errorf("load input: %w", err))
		return
	}

	rcpt, err := s.exec.Prove(context.Background(), zkvm.NewImageID(image), input)
	if err != nil {
		fail(err)
		return
	}
	encoded, err := rcpt.Encode()
	if err != nil {
		fail(fmt.Errorf("encode receipt: %w", err))
		return
	}
	receiptCID, err := s.store.Put(encoded)
	if err != nil {
		fail(fmt.Errorf("store receipt: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.sessions[id]
	st.status = bonsai.StatusSucceeded
	st.receiptCID = receiptCID
}

func (s *Server) handleSessionStatus(c *gin.Context) {
	s.mu.Lock()
	st, ok := s.sessions[c.Param("uuid")]
	var res bonsai.SessionStatusRes
	if ok {
		res.Status = st.status
		if st.status == bonsai.StatusSucceeded {
			res.ReceiptURL = fmt.Sprintf("%s/receipts/%s", baseURL(c), st.receiptCID)
		}
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session " + c.Param("uuid")})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleReceipt(c *gin.Context) {
	rcptCID, err := cid.Decode(c.Param("cid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt id"})
		return
	}
	data, err := s.store.Get(rcptCID)
	if err != nil {
		if storage.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown receipt"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// FailureReason reports why a session failed, for operator inspection.
func (s *Server) FailureReason(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok || st.status != bonsai.StatusFailed {
		return "", false
	}
	return st.failure, true
}

func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
