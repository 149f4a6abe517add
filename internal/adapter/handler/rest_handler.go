package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hive-corporation/threatbridge/internal/adapter/notifier"
	"github.com/hive-corporation/threatbridge/internal/core/domain"
	"github.com/hive-corporation/threatbridge/internal/core/reporter"
)

type RestHandler struct {
	reporter      *reporter.Reporter
	slackNotifier *notifier.SlackNotifier
	reportLink    string
}

func NewRestHandler(rep *reporter.Reporter, slackNotifier *notifier.SlackNotifier, reportLinkTemplate string) *RestHandler {
	return &RestHandler{
		reporter:      rep,
		slackNotifier: slackNotifier,
		reportLink:    reportLinkTemplate,
	}
}

// Health check endpoint
func (h *RestHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "threatbridge-api",
	}
	writeJSON(w, http.StatusOK, response)
}

// SubmitReport accepts one raw analysis result from the sandbox's
// reporting dispatcher and publishes it synchronously.
func (h *RestHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		log.Printf("❌ failed to decode report payload: %v", err)
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	runID := uuid.New().String()
	report := domain.NewReport(raw)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := h.reporter.Run(ctx, report); err != nil {
		log.Printf("❌ run %s: failed to publish report: %v", runID, err)

		var commitErr *reporter.CommitError
		if errors.As(err, &commitErr) {
			writeError(w, http.StatusBadGateway, "failed to commit incident to intel platform")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	log.Printf("✅ run %s: report published", runID)
	h.notify(report, runID)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"run_id": runID,
		"status": "published",
	})
}

func (h *RestHandler) notify(report domain.Report, runID string) {
	if h.slackNotifier == nil {
		return
	}

	target, _ := report.TargetFileName()
	n := notifier.ReportNotification{
		Target: target,
		RunID:  runID,
	}
	if id, ok := report.AnalysisID(); ok {
		n.AnalysisID = strconv.FormatInt(id, 10)
		n.ReportLink = fmt.Sprintf(h.reportLink, id)
	}

	// Best effort; the report is already published.
	go func() {
		if err := h.slackNotifier.NotifyReportPublished(n); err != nil {
			log.Printf("failed to send Slack notification: %v", err)
		}
	}()
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
