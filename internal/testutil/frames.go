package testutil

import "fmt"

// StatusFrame builds a status_update frame.
func StatusFrame(status string, progress int, stage string) string {
	return fmt.Sprintf(`{"type":"status_update","status":%q,"progress":%d,"current_stage":%q}`, status, progress, stage)
}

// WarningFrame builds a status_update frame carrying an error fragment.
func WarningFrame(progress int, stage, warning string) string {
	return fmt.Sprintf(`{"type":"status_update","status":"processing","progress":%d,"current_stage":%q,"error":%q}`, progress, stage, warning)
}

// CompletedFrame builds a completed frame the way the backend sends it.
func CompletedFrame(id, appName string) string {
	return fmt.Sprintf(`{"type":"completed","status":"completed","progress":100,"download_url":"/download/%s","app_name":%q}`, id, appName)
}

// PingFrame is the backend keep-alive.
const PingFrame = `{"type":"ping"}`
