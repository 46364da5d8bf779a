package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvoice/backend/internal/event"
)

func newCallbackRouter(deps *Dependencies) *gin.Engine {
	r := gin.New()
	h := NewCallbackHandler(deps)
	r.POST("/callbacks/textract", h.TextractCallback)
	r.POST("/callbacks/polly", h.PollyCallback)
	return r
}

func snsBody(t *testing.T, msgType, message string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"Type":      msgType,
		"MessageId": "msg-1",
		"TopicArn":  "arn:aws:sns:eu-west-1:000000000000:ocr-completions",
		"Message":   message,
	})
	require.NoError(t, err)
	return body
}

func TestTextractCallbackBridgesNotification(t *testing.T) {
	deps, _, _, _, _, publisher := testDeps(t)
	r := newCallbackRouter(deps)

	inner := `{"JobId":"ocr-task-1","Status":"SUCCEEDED","DocumentLocation":{"S3Bucket":"uploads","S3ObjectName":"user-1/report.pdf"}}`
	w := doRequest(r, http.MethodPost, "/callbacks/textract", snsBody(t, "Notification", inner))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, []string{"ocr.completed"}, publisher.routingKey)

	n, err := event.DecodeTextract(publisher.published[0])
	require.NoError(t, err)
	assert.Equal(t, "ocr-task-1", n.JobID)
	assert.Equal(t, "SUCCEEDED", n.Status)
}

func TestPollyCallbackBridgesNotification(t *testing.T) {
	deps, _, _, _, _, publisher := testDeps(t)
	r := newCallbackRouter(deps)

	inner := `{"taskId":"speech-task-9","taskStatus":"COMPLETED","outputUri":"s3://uploads/user-1/job/audio/audio.speech-task-9.mp3"}`
	w := doRequest(r, http.MethodPost, "/callbacks/polly", snsBody(t, "Notification", inner))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, []string{"speech.completed"}, publisher.routingKey)

	n, err := event.DecodePolly(publisher.published[0])
	require.NoError(t, err)
	assert.Equal(t, "speech-task-9", n.TaskID)
}

func TestCallbackSubscriptionConfirmation(t *testing.T) {
	deps, _, _, _, _, publisher := testDeps(t)
	r := newCallbackRouter(deps)

	w := doRequest(r, http.MethodPost, "/callbacks/textract", snsBody(t, "SubscriptionConfirmation", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, publisher.published)
}

func TestCallbackInvalidBody(t *testing.T) {
	deps, _, _, _, _, publisher := testDeps(t)
	r := newCallbackRouter(deps)

	w := doRequest(r, http.MethodPost, "/callbacks/textract", []byte("{"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, publisher.published)
}
