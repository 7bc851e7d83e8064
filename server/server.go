package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/haydenk/askpdf/internal/models"
	"github.com/haydenk/askpdf/pkg/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Server is the thin HTTP boundary: it translates requests into the three
// pipeline operations and maps error kinds to status codes. No pipeline
// logic lives here.
type Server struct {
	pipeline *pipeline.Pipeline
}

func New(p *pipeline.Pipeline) *Server {
	return &Server{pipeline: p}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/documents/", s.handleDocument)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type ingestResponse struct {
	DocumentID    string `json:"document_id"`
	Filename      string `json:"filename"`
	ChunksIndexed int    `json:"chunks_indexed"`
	PagesFailed   int    `json:"pages_failed"`
}

// POST /documents ingests an uploaded PDF. The document id can be supplied
// as a form field; otherwise one is generated.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	docID := r.FormValue("document_id")
	if docID == "" {
		docID = uuid.NewString()
	}

	result, err := s.pipeline.Ingest(r.Context(), data, docID, header.Filename)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		DocumentID:    result.DocumentID,
		Filename:      header.Filename,
		ChunksIndexed: result.ChunksIndexed,
		PagesFailed:   result.PagesFailed,
	})
}

// DELETE /documents/{id}
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := strings.TrimPrefix(r.URL.Path, "/documents/")
	if docID == "" {
		http.Error(w, "missing document id", http.StatusBadRequest)
		return
	}

	if err := s.pipeline.Remove(r.Context(), docID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type askRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type sourceResponse struct {
	DocumentID string  `json:"document_id"`
	Page       int     `json:"page"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

type askResponse struct {
	Answer   string           `json:"answer"`
	NoAnswer bool             `json:"no_answer"`
	Sources  []sourceResponse `json:"sources,omitempty"`
}

// POST /ask
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	record, err := s.pipeline.Ask(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAskResponse(record))
}

func toAskResponse(record *models.AnswerRecord) askResponse {
	resp := askResponse{
		Answer:   record.Answer,
		NoAnswer: record.NoAnswer,
	}
	for _, src := range record.Sources {
		resp.Sources = append(resp.Sources, sourceResponse{
			DocumentID: src.Chunk.ID.DocumentID,
			Page:       src.Chunk.ID.Page,
			Text:       src.Chunk.Text,
			Score:      src.Score,
		})
	}
	return resp
}

type wsMessage struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// handleWebSocket runs a chat loop: each incoming message is a question
// answered against the index.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendMessage(conn, "error", "invalid message")
			continue
		}

		record, err := s.pipeline.Ask(r.Context(), msg.Content, 0)
		if err != nil {
			s.sendMessage(conn, "error", err.Error())
			continue
		}

		reply := wsMessage{Type: "response", Content: record.Answer, Data: toAskResponse(record)}
		if record.NoAnswer {
			reply.Type = "no_answer"
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("Error sending message: %v", err)
			return
		}
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string) {
	if err := conn.WriteJSON(wsMessage{Type: msgType, Content: content}); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// writeError maps the pipeline error taxonomy onto HTTP statuses:
// a rejected document is the client's fault, infrastructure failures are
// ours, and timeouts get their own code so clients can retry.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrExtraction):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrTimeout):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	case errors.Is(err, models.ErrDimensionMismatch), errors.Is(err, models.ErrModelMismatch):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	case errors.Is(err, models.ErrEmbedding), errors.Is(err, models.ErrSynthesis):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
