package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"OrderKeeper/internal/events"
	"OrderKeeper/pkg/kit"
)

const publishTimeout = 2 * time.Second

type Server struct {
	Store  Store
	Events events.Publisher
	Log    *zap.Logger
}

func (s *Server) CreateHandler() http.HandlerFunc { return s.create }
func (s *Server) GetHandler() http.HandlerFunc    { return s.get }

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	userID, doc, err := decodeOrder(w, r)
	if err != nil {
		s.writeError(w, r, "create-order", userID, err)
		return
	}

	if err := s.Store.Put(r.Context(), userID, doc); err != nil {
		s.writeError(w, r, "create-order", userID, err)
		return
	}

	kit.WriteOK(w, r, http.StatusCreated, kit.Response{
		Message: fmt.Sprintf("order for %s saved", userID),
	})
	// Push the 201 out before talking to the event sinks.
	_ = http.NewResponseController(w).Flush()

	s.publish(r.Context(), userID, doc)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, r, "get-order", userID, err)
		return
	}

	o, err := s.Store.Get(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, "get-order", userID, err)
		return
	}

	kit.WriteOK(w, r, http.StatusOK, kit.Response{Order: o.Data})
}

// userIDParam returns the decoded {userID} segment. chi matches on the raw
// path when the URL carries escapes such as %2F, so those need decoding here.
func userIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "userID")
	if r.URL.RawPath != "" {
		var err error
		if id, err = url.PathUnescape(id); err != nil {
			return "", &ValidationError{Field: "user_id", Reason: "invalid path escape"}
		}
	}
	if id == "" {
		return "", &ValidationError{Field: "user_id", Reason: "required"}
	}
	return id, nil
}

// writeError maps the domain error kinds onto HTTP. Storage failures are
// logged in full and reported to the client only as a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op, userID string, err error) {
	var (
		ve *ValidationError
		se *StorageError
	)

	switch {
	case errors.As(err, &ve):
		kit.WriteError(w, r, http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "order not found")
	case errors.As(err, &se):
		s.logger().Error("order store failed",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.String("store_op", se.Op),
			zap.Error(se.Err),
		)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error")
	default:
		s.logger().Error("unexpected error", zap.String("op", op), zap.String("user_id", userID), zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error")
	}
}

func (s *Server) publish(ctx context.Context, userID string, doc json.RawMessage) {
	if s.Events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	e := events.NewOrderSaved(userID, doc)
	if err := s.Events.Publish(ctx, e); err != nil {
		s.logger().Warn("publish order event failed",
			zap.String("user_id", userID),
			zap.String("event_id", e.ID),
			zap.Error(err),
		)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
