package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// SessionResponse represents an attendance session
type SessionResponse struct {
	ID        string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string `json:"name" example:"Turma A - 2026-08-30"`
	Status    string `json:"status" example:"active"`
	StartedAt string `json:"started_at" example:"2026-08-30T08:00:00Z"`
	EndedAt   string `json:"ended_at,omitempty" example:"2026-08-30T10:00:00Z"`
}

// AttendanceRecordResponse represents one marked attendance
type AttendanceRecordResponse struct {
	ID         string  `json:"id" example:"650e8400-e29b-41d4-a716-446655440001"`
	SessionID  string  `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	StudentID  string  `json:"student_id" example:"750e8400-e29b-41d4-a716-446655440002"`
	MarkedAt   string  `json:"marked_at" example:"2026-08-30T08:12:31Z"`
	Confidence float64 `json:"confidence" example:"0.93"`
	SyncStatus string  `json:"sync_status" example:"pending"`
}

// SessionAttendanceResponse wraps a session's records
type SessionAttendanceResponse struct {
	Session SessionResponse            `json:"session"`
	Count   int                        `json:"count" example:"23"`
	Records []AttendanceRecordResponse `json:"records"`
}

// PipelineStatusData reports the frame loop state
type PipelineStatusData struct {
	State           string  `json:"state" example:"running"`
	FPS             float64 `json:"fps" example:"14.8"`
	FramesObserved  uint64  `json:"frames_observed" example:"120544"`
	FramesProcessed uint64  `json:"frames_processed" example:"60272"`
	FacesDetected   uint64  `json:"faces_detected" example:"8412"`
	EventsEmitted   uint64  `json:"events_emitted" example:"8210"`
	LastError       string  `json:"last_error,omitempty" example:""`
}

// TemplatesStatusData reports the in-memory gallery
type TemplatesStatusData struct {
	Count    int    `json:"count" example:"128"`
	LoadedAt string `json:"loaded_at" example:"2026-08-30T07:55:00Z"`
}

// RecognitionStatusData combines pipeline and gallery status
type RecognitionStatusData struct {
	Pipeline  PipelineStatusData  `json:"pipeline"`
	Templates TemplatesStatusData `json:"templates"`
}

// SyncStatsResponse reports queue depth per state
type SyncStatsResponse struct {
	Pending int `json:"pending" example:"3"`
	Synced  int `json:"synced" example:"412"`
	Failed  int `json:"failed" example:"1"`
}

// SyncEntryResponse represents one queue entry
type SyncEntryResponse struct {
	ID             string `json:"id" example:"850e8400-e29b-41d4-a716-446655440003"`
	RecordID       string `json:"record_id" example:"650e8400-e29b-41d4-a716-446655440001"`
	IdempotencyKey string `json:"idempotency_key" example:"750e8400:550e8400:1756500751"`
	Status         string `json:"status" example:"failed"`
	Attempts       int    `json:"attempts" example:"8"`
	LastError      string `json:"last_error,omitempty" example:"HTTP 502"`
}

// FailedSyncEntriesResponse lists terminal entries
type FailedSyncEntriesResponse struct {
	Entries []SyncEntryResponse `json:"entries"`
	Count   int                 `json:"count" example:"1"`
}

// StartSessionBody is the request body for opening a session
type StartSessionBody struct {
	Name string `json:"name" example:"Turma A - manhã"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"NO_ACTIVE_SESSION"`
	Message string `json:"message" example:"No attendance session is active"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Presenca Attendance API",
		Version:     "v1.0.0",
		Description: "Face recognition attendance tracking with durable cloud spreadsheet sync",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// Sessions

		endpoint.New(
			endpoint.POST,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Start an attendance session"),
			endpoint.WithDescription("Opens a new session. Fails if another session is already active."),
			endpoint.WithBody(StartSessionBody{}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "201", "Session started"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "name is required"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "SESSION_ALREADY_ACTIVE", Message: "An attendance session is already active"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/sessions/end",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("End the active session"),
			endpoint.WithDescription("Closes the active session. Idempotent: returns 204 when no session is open."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session ended"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/sessions/active",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Get the active session"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Active session"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_ACTIVE_SESSION", Message: "No attendance session is active"}, "409", "Conflict"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Get a session by id"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("UUID")),
			),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Session not found"}, "404", "Not Found"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/sessions/{id}/attendance",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("List a session's attendance records"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("UUID")),
			),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionAttendanceResponse{}, "200", "Attendance records"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Session not found"}, "404", "Not Found"),
			}),
		),

		// Recognition

		endpoint.New(
			endpoint.GET,
			"/recognition/status",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Pipeline and gallery status"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognitionStatusData{}, "200", "Current status"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/recognition/stream",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("MJPEG preview of the processed camera feed"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("multipart/x-mixed-replace")}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "200", "MJPEG stream"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/templates/reload",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Reload enrolled templates from storage"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(TemplatesStatusData{}, "200", "Gallery reloaded"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "STORE_UNAVAILABLE", Message: "Template storage is unreachable"}, "503", "Service Unavailable"),
			}),
		),

		// Sync

		endpoint.New(
			endpoint.GET,
			"/sync/status",
			endpoint.WithTags("Sync"),
			endpoint.WithSummary("Sync queue depth per state"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SyncStatsResponse{}, "200", "Queue stats"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/sync/failed",
			endpoint.WithTags("Sync"),
			endpoint.WithSummary("List entries that exhausted their retries"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(FailedSyncEntriesResponse{}, "200", "Failed entries"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/sync/failed/{id}/retry",
			endpoint.WithTags("Sync"),
			endpoint.WithSummary("Requeue one failed entry"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("UUID")),
			),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "202", "Entry requeued"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SYNC_ENTRY_NOT_FOUND", Message: "Sync entry not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "SYNC_ENTRY_NOT_FAILED", Message: "Sync entry is not in failed state"}, "409", "Conflict"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/sync/flush",
			endpoint.WithTags("Sync"),
			endpoint.WithSummary("Drain due entries immediately"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SyncStatsResponse{}, "200", "Queue stats after drain"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
