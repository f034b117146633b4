package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/ingest"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/metrics"
)

const maxUploadMemory = 10 << 20 // form parsing buffer; larger files spill to disk

// QueuedResponse is the 200 body for an accepted chunk.
type QueuedResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	QueueSize int    `json:"queue_size"`
}

// AnalyzeSpeech handles POST /ser/analyze-speech: validate, spool the
// upload, enqueue. The spool file belongs to this handler until the
// enqueue succeeds; on any failure after Save it must be removed here.
func (s *Server) AnalyzeSpeech(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID, err := uuid.Parse(r.FormValue("user_id"))
	if err != nil {
		log.Warn().Str("user_id", r.FormValue("user_id")).Msg("rejected upload: invalid user id")
		WriteError(w, http.StatusBadRequest, "user_id must be a valid UUID")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		log.Warn().Msg("rejected upload: missing file field")
		WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".wav") {
		log.Warn().Str("filename", header.Filename).Msg("rejected upload: not a wav file")
		WriteError(w, http.StatusBadRequest, "file must be a .wav recording")
		return
	}

	path, err := s.deps.Spool.Save(file)
	if err != nil {
		log.Error().Err(err).Msg("spool write failed")
		WriteError(w, http.StatusServiceUnavailable, "failed to store audio chunk")
		return
	}

	now := s.deps.Clock.Now()
	job := &ingest.ChunkJob{
		UserID:     userID,
		Path:       path,
		ReceivedAt: now,
		Filename:   header.Filename,
	}
	if !s.deps.Queue.TryEnqueue(job) {
		s.deps.Spool.Remove(path)
		metrics.QueueRejectionsTotal.Inc()
		s.requests.Add(RequestEntry{
			At: now, UserID: userID.String(), Filename: header.Filename,
			Outcome: "rejected", QueueSize: s.deps.Queue.Len(),
		})
		log.Error().Str("user_id", userID.String()).Msg("chunk queue full, upload rejected")
		WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue audio chunk for processing")
		return
	}

	metrics.ChunksReceivedTotal.Inc()
	queueSize := s.deps.Queue.Len()
	s.requests.Add(RequestEntry{
		At: now, UserID: userID.String(), Filename: header.Filename,
		Outcome: "queued", QueueSize: queueSize,
	})

	WriteJSON(w, http.StatusOK, QueuedResponse{
		Status:    "queued",
		Message:   "audio chunk accepted for processing",
		QueueSize: queueSize,
	})
}
