package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bastiangx/simserve/internal/logger"
	"github.com/bastiangx/simserve/internal/utils"
	"github.com/bastiangx/simserve/pkg/config"
	"github.com/bastiangx/simserve/pkg/match"
	"github.com/bastiangx/simserve/pkg/measure"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles the IPC for similarity search
type Server struct {
	matcher  *match.SyncMatcher
	config   *config.Config
	decoder  *msgpack.Decoder
	writer   io.Writer
	log      *log.Logger
	requests int
}

// NewServer creates a server over a ready-made matcher, reading requests from r
// and writing responses to w. A nil config uses the defaults. The index section
// of cfg is not applied here; use NewFromConfig to build the matcher from it.
func NewServer(matcher *match.SyncMatcher, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		matcher: matcher,
		config:  cfg,
		decoder: msgpack.NewDecoder(r),
		writer:  w,
		log:     logger.New("server"),
	}
	if n := matcher.NgramSize(); n != cfg.Index.NgramSize {
		s.log.Warnf("Matcher uses %d-grams but index.ngram_size is %d; the config index section is ignored", n, cfg.Index.NgramSize)
	}
	return s
}

// Start signals readiness and serves requests until the input ends, ctx is
// cancelled, or the stream stops being valid msgpack. A clean end of input
// returns nil.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting Server.")
	if err := s.sendResponse(StatusResponse{Status: "ready"}); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := s.decoder.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debugf("Input closed after %d requests", s.requests)
				return nil
			}
			s.log.Errorf("Reading request stream: %v", err)
			return err
		}
		s.requests++

		var request Request
		if err := msgpack.Unmarshal(raw, &request); err != nil {
			s.log.Errorf("Unmarshaling request: %v", err)
			if err := s.sendError("", "Invalid msgpack request", 400); err != nil {
				return err
			}
			continue
		}
		if err := s.handleRequest(ctx, request); err != nil {
			return err
		}
	}
}

// handleRequest dispatches on op. Only write failures are returned.
func (s *Server) handleRequest(ctx context.Context, req Request) error {
	switch req.Op {
	case "search":
		return s.handleSearch(req)
	case "search_one":
		return s.handleSearchOne(req)
	case "batch":
		return s.handleBatch(ctx, req)
	case "add":
		return s.handleAdd(req)
	case "has":
		return s.handleHas(req)
	case "prefix":
		return s.handlePrefix(req)
	case "stats":
		stats := s.matcher.Stats().Map()
		stats["requests"] = s.requests
		return s.sendResponse(StatsResponse{ID: req.ID, Stats: stats})
	case "health":
		return s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
	case "":
		return s.sendError(req.ID, "Missing 'op' field", 400)
	default:
		return s.sendError(req.ID, fmt.Sprintf("Unknown op: %s", req.Op), 400)
	}
}

func (s *Server) handleSearch(req Request) error {
	if err := utils.CheckInput(req.Query, s.config.Server.MaxQueryLen); err != nil {
		return s.sendError(req.ID, err.Error(), 400)
	}
	m, err := s.resolveMeasure(req)
	if err != nil {
		return s.sendError(req.ID, err.Error(), 400)
	}

	start := time.Now()
	results, err := s.matcher.Retrieve(req.Query, m, s.alpha(req))
	if err != nil {
		return s.sendFailure(req.ID, err)
	}
	elapsed := time.Since(start)
	s.log.Debugf("search %q: %d results in %v", req.Query, len(results), elapsed)

	return s.sendResponse(SearchResponse{
		ID:        req.ID,
		Results:   nonNil(results),
		Count:     len(results),
		TimeTaken: elapsed.Microseconds(),
	})
}

func (s *Server) handleSearchOne(req Request) error {
	if err := utils.CheckInput(req.Query, s.config.Server.MaxQueryLen); err != nil {
		return s.sendError(req.ID, err.Error(), 400)
	}
	m, err := s.resolveMeasure(req)
	if err != nil {
		return s.sendError(req.ID, err.Error(), 400)
	}
	start := time.Now()
	word, found, err := s.matcher.RetrieveOne(req.Query, m, s.alpha(req))
	if err != nil {
		return s.sendFailure(req.ID, err)
	}
	return s.sendResponse(SearchOneResponse{
		ID:        req.ID,
		Word:      word,
		Found:     found,
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) handleBatch(ctx context.Context, req Request) error {
	for _, q := range req.Queries {
		if err := utils.CheckInput(q, s.config.Server.MaxQueryLen); err != nil {
			return s.sendError(req.ID, err.Error(), 400)
		}
	}
	m, err := s.resolveMeasure(req)
	if err != nil {
		return s.sendError(req.ID, err.Error(), 400)
	}
	start := time.Now()
	results, err := s.matcher.RetrieveBatch(ctx, req.Queries, m, s.alpha(req), s.config.Search.BatchWorkers)
	if err != nil {
		return s.sendFailure(req.ID, err)
	}
	for i := range results {
		results[i] = nonNil(results[i])
	}
	return s.sendResponse(BatchResponse{
		ID:        req.ID,
		Results:   results,
		Count:     len(results),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) handleAdd(req Request) error {
	if err := utils.CheckInput(req.Word, s.config.Server.MaxQueryLen); err != nil {
		return s.sendError(req.ID, err.Error(), 400)
	}
	sid := s.matcher.Add(req.Word)
	s.log.Debugf("Added %q as %d", req.Word, sid)
	return s.sendResponse(AddResponse{ID: req.ID, SID: uint32(sid)})
}

func (s *Server) handleHas(req Request) error {
	if err := utils.CheckInput(req.Query, s.config.Server.MaxQueryLen); err != nil {
		return s.sendError(req.ID, err.Error(), 400)
	}
	return s.sendResponse(HasResponse{ID: req.ID, Found: s.matcher.Contains(req.Query)})
}

func (s *Server) handlePrefix(req Request) error {
	if err := utils.CheckInput(req.Query, s.config.Server.MaxQueryLen); err != nil {
		return s.sendError(req.ID, err.Error(), 400)
	}
	limit := req.Limit
	if limit < 1 || limit > s.config.Server.PrefixLimit {
		limit = s.config.Server.PrefixLimit
	}
	start := time.Now()
	results := s.matcher.Prefix(req.Query, limit)
	return s.sendResponse(SearchResponse{
		ID:        req.ID,
		Results:   nonNil(results),
		Count:     len(results),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

// resolveMeasure resolves the request's measure, falling back to search.measure.
func (s *Server) resolveMeasure(req Request) (measure.Measure, error) {
	name := s.config.Search.Measure
	if req.Measure != "" {
		name = req.Measure
	}
	return measure.Lookup(name)
}

func (s *Server) alpha(req Request) float64 {
	if req.Alpha != nil {
		return *req.Alpha
	}
	return s.config.Search.Threshold
}

// sendFailure maps matcher errors to status codes.
func (s *Server) sendFailure(id string, err error) error {
	if errors.Is(err, match.ErrInvalidThreshold) {
		return s.sendError(id, err.Error(), 400)
	}
	s.log.Errorf("Request %s failed: %v", id, err)
	return s.sendError(id, "Internal server error", 500)
}

// sendResponse marshals the response and writes it as one msgpack value.
func (s *Server) sendResponse(response any) error {
	data, err := msgpack.Marshal(response)
	if err != nil {
		s.log.Errorf("Marshaling response: %v", err)
		return s.sendError("", "Internal server error", 500)
	}
	if _, err := s.writer.Write(data); err != nil {
		s.log.Errorf("Writing response: %v", err)
		return err
	}
	return nil
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) error {
	data, err := msgpack.Marshal(ErrorResponse{ID: id, Error: message, Code: code})
	if err != nil {
		return err
	}
	_, err = s.writer.Write(data)
	return err
}

// nonNil keeps empty results encoded as an empty array rather than nil.
func nonNil(results []string) []string {
	if results == nil {
		return []string{}
	}
	return results
}
