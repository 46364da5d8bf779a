package dto

// SubmitJobRequest starts a document-to-speech job for an already-uploaded
// file. The client generates the job id.
type SubmitJobRequest struct {
	JobID        string `json:"job_id" binding:"required"`
	UserID       string `json:"user_id" binding:"required"`
	ConnectionID string `json:"connection_id" binding:"required"`
	Bucket       string `json:"bucket"`
	Key          string `json:"key" binding:"required"`
}

// JobResponse mirrors one ledger record
type JobResponse struct {
	JobID        string `json:"job_id"`
	UserID       string `json:"user_id"`
	ConnectionID string `json:"connection_id"`
	StartTime    string `json:"start_time"`
	InputFile    string `json:"input_file"`
	OcrTaskID    string `json:"ocr_task_id"`
	SpeechTaskID string `json:"speech_task_id,omitempty"`
}

// UploadResponse reports where an uploaded file landed
type UploadResponse struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}
