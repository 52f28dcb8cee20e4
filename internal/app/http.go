package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quarterdeck/api/internal/export"
	"quarterdeck/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	exporter   *export.Service
	corsOrigin string
}

func NewHTTPServer(service *Service, exporter *export.Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, exporter: exporter, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "products" {
		s.handleProduct(w, r, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handleProduct dispatches every /api/products/{p}/... route. rest holds the
// path segments after the product id.
func (s *HTTPServer) handleProduct(w http.ResponseWriter, r *http.Request, productID string, rest []string) {
	if len(rest) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch rest[0] {
	case "epics":
		s.handleEpics(w, r, productID, rest[1:])
	case "quarters":
		s.handleQuarters(w, r, productID, rest[1:])
	case "rating-config":
		s.handleRatingConfig(w, r, productID, rest[1:])
	case "assigned-epics":
		s.handleAssignedEpics(w, r, productID, rest[1:])
	case "teams":
		s.handleTeams(w, r, productID, rest[1:])
	case "members":
		s.handleMembers(w, r, productID, rest[1:])
	case "assignments":
		s.handleAssignments(w, r, productID, rest[1:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleEpics(w http.ResponseWriter, r *http.Request, productID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListEpics(r.Context(), productID)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"epics": items})
		case http.MethodPost:
			var body EpicInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.CreateEpic(r.Context(), productID, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) == 1 && rest[0] == "search" && r.Method == http.MethodGet {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		limit, ok := intQuery(w, r, "limit", 20)
		if !ok {
			return
		}
		offset, ok := intQuery(w, r, "offset", 0)
		if !ok {
			return
		}
		payload, err := s.service.SearchEpics(r.Context(), productID, q, limit, offset)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(rest) == 1 {
		epicID := rest[0]
		switch r.Method {
		case http.MethodPut:
			var body EpicInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.UpdateEpic(r.Context(), productID, epicID, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		case http.MethodDelete:
			if err := s.service.DeleteEpic(r.Context(), productID, epicID); err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleQuarters(w http.ResponseWriter, r *http.Request, productID string, rest []string) {
	if len(rest) < 3 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	year, err := strconv.Atoi(rest[0])
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "year must be an integer", nil)
		return
	}
	quarter, err := strconv.Atoi(rest[1])
	if err != nil || quarter < 1 || quarter > 4 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "quarter must be 1-4", nil)
		return
	}
	rest = rest[2:]

	switch {
	case rest[0] == "capacity" && len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.GetCapacity(r.Context(), productID, year, quarter)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		case http.MethodPut:
			var body CapacityInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.SaveCapacity(r.Context(), productID, year, quarter, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}

	case rest[0] == "capacity" && len(rest) == 2 && rest[1] == "history" && r.Method == http.MethodGet:
		limit, ok := intQuery(w, r, "limit", 50)
		if !ok {
			return
		}
		history, err := s.service.CapacityHistory(r.Context(), productID, limit)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": history})

	case rest[0] == "capacity" && len(rest) == 3 && rest[1] == "history" && r.Method == http.MethodGet:
		payload, err := s.service.CapacityPlanAt(r.Context(), productID, rest[2], year, quarter)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case rest[0] == "roadmap" && len(rest) == 1:
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.GetRoadmap(r.Context(), productID, year, quarter)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		case http.MethodPut:
			var body RoadmapInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.ApplyRoadmap(r.Context(), productID, year, quarter, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}

	case rest[0] == "roadmap" && len(rest) == 3 && rest[2] == "score" && r.Method == http.MethodPut:
		epicID := rest[1]
		var body ScoreInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.SaveScoreField(r.Context(), productID, year, quarter, epicID, body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case rest[0] == "publish" && len(rest) == 1 && r.Method == http.MethodPost:
		idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		payload, err := s.service.Publish(r.Context(), productID, year, quarter, idemKey)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case rest[0] == "export.pdf" && len(rest) == 1 && r.Method == http.MethodGet:
		if s.exporter == nil {
			writeError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export service not configured", nil)
			return
		}
		result, err := s.exporter.Export(r.Context(), export.Request{
			ProductID: productID,
			Year:      year,
			Quarter:   quarter,
			Format:    export.FormatPDF,
		})
		if err != nil {
			if errors.Is(err, export.ErrPDFDependencyMissing) {
				writeError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF renderer unavailable", nil)
				return
			}
			s.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)

	case rest[0] == "snapshot" && len(rest) == 1 && r.Method == http.MethodGet:
		payload, err := s.service.QuarterSnapshot(r.Context(), productID, year, quarter)
		if err != nil {
			s.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)

	case rest[0] == "teams":
		s.handlePeriodTeams(w, r, productID, year, quarter, rest[1:])

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleRatingConfig(w http.ResponseWriter, r *http.Request, productID string, rest []string) {
	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	unit := strings.ToUpper(rest[0])
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.GetRatingConfig(r.Context(), productID, unit)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodPut:
		var body RatingConfigInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.PutRatingConfig(r.Context(), productID, unit, body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleAssignedEpics(w http.ResponseWriter, r *http.Request, productID string, rest []string) {
	if len(rest) != 0 || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	excludeYear, ok := intQuery(w, r, "excludeYear", 0)
	if !ok {
		return
	}
	excludeQuarter, ok := intQuery(w, r, "excludeQuarter", 0)
	if !ok {
		return
	}
	payload, err := s.service.AssignedEpics(r.Context(), productID, excludeYear, excludeQuarter)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handlePeriodTeams serves quarter-scoped team listing and creation under
// /quarters/{year}/{q}/teams.
func (s *HTTPServer) handlePeriodTeams(w http.ResponseWriter, r *http.Request, productID string, year, quarter int, rest []string) {
	if len(rest) != 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	switch r.Method {
	case http.MethodGet:
		teams, err := s.service.ListTeams(r.Context(), productID, year, quarter)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"teams": teamViews(teams)})
	case http.MethodPost:
		var body TeamInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		team, err := s.service.CreateTeam(r.Context(), productID, year, quarter, body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, teamView(team))
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleTeams(w http.ResponseWriter, r *http.Request, productID string, rest []string) {
	if len(rest) == 0 {
		// Optional year/quarter narrow the list; zero means every period.
		year, ok := intQuery(w, r, "year", 0)
		if !ok {
			return
		}
		quarter, ok := intQuery(w, r, "quarter", 0)
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodGet:
			teams, err := s.service.ListTeams(r.Context(), productID, year, quarter)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"teams": teamViews(teams)})
		case http.MethodPost:
			var body TeamInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			team, err := s.service.CreateTeam(r.Context(), productID, year, quarter, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, teamView(team))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) == 1 {
		teamID := rest[0]
		switch r.Method {
		case http.MethodPut:
			var body TeamInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			team, err := s.service.UpdateTeam(r.Context(), productID, teamID, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, teamView(team))
		case http.MethodDelete:
			if err := s.service.DeleteTeam(r.Context(), teamID); err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) == 2 && rest[1] == "members" {
		teamID := rest[0]
		switch r.Method {
		case http.MethodGet:
			members, err := s.service.ListTeamMembers(r.Context(), teamID)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"members": memberViews(members)})
		case http.MethodPost:
			var body MemberInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			member, err := s.service.AddTeamMember(r.Context(), teamID, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, memberView(member))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) == 3 && rest[1] == "members" && r.Method == http.MethodDelete {
		if err := s.service.RemoveTeamMember(r.Context(), rest[2]); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleMembers(w http.ResponseWriter, r *http.Request, productID string, rest []string) {
	if len(rest) == 2 && rest[1] == "assignments" && r.Method == http.MethodGet {
		assignments, err := s.service.MemberAssignments(r.Context(), productID, rest[0])
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
		return
	}

	if len(rest) == 2 && rest[1] == "availability" && r.Method == http.MethodGet {
		query := r.URL.Query()
		payload, err := s.service.CheckAvailability(r.Context(), productID, rest[0],
			strings.TrimSpace(query.Get("start")), strings.TrimSpace(query.Get("end")))
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleAssignments(w http.ResponseWriter, r *http.Request, productID string, rest []string) {
	if len(rest) == 0 && r.Method == http.MethodPost {
		var body AssignmentInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateAssignment(r.Context(), productID, body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
		return
	}

	if len(rest) == 1 && r.Method == http.MethodDelete {
		idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		payload, err := s.service.DeleteAssignment(r.Context(), productID, rest[0], idemKey)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// ---- views ----

type teamJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Year        int    `json:"year,omitempty"`
	Quarter     int    `json:"quarter,omitempty"`
	IsActive    bool   `json:"isActive"`
}

func teamView(team store.Team) teamJSON {
	return teamJSON{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		Year:        team.Year,
		Quarter:     team.Quarter,
		IsActive:    team.IsActive,
	}
}

func teamViews(teams []store.Team) []teamJSON {
	views := make([]teamJSON, 0, len(teams))
	for _, team := range teams {
		views = append(views, teamView(team))
	}
	return views
}

type memberJSON struct {
	ID         string `json:"id"`
	TeamID     string `json:"teamId"`
	MemberName string `json:"memberName"`
	Role       string `json:"role,omitempty"`
}

func memberView(member store.TeamMember) memberJSON {
	return memberJSON{ID: member.ID, TeamID: member.TeamID, MemberName: member.MemberName, Role: member.Role}
}

func memberViews(members []store.TeamMember) []memberJSON {
	views := make([]memberJSON, 0, len(members))
	for _, member := range members {
		views = append(views, memberView(member))
	}
	return views
}

// ---- plumbing ----

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func intQuery(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", name+" must be an integer", nil)
		return 0, false
	}
	return parsed, true
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var conflict *store.QuarterConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, "CONFLICT", "Epics already assigned to another quarter", map[string]any{"epicIds": conflict.EpicIDs}
	}
	var overlap *store.OverlapError
	if errors.As(err, &overlap) {
		return http.StatusConflict, "CONFLICT", "Member has an overlapping assignment", map[string]any{
			"memberId":     overlap.MemberID,
			"assignmentId": overlap.AssignmentID,
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}
