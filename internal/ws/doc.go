// Package ws implements the progress channel: a receive-only WebSocket
// subscription to /ws/{generation_id} on the generation backend.
//
// Inbound frames are JSON tagged by "type":
//   - status_update: status, progress (0-100), current_stage, optional error
//   - completed: the generation finished; may carry download_url and app_name
//   - ping: keep-alive
//
// Malformed or unknown frames are logged and dropped. A transport error, an
// idle timeout or a close that was not preceded by completed is delivered
// once as an EventError carrying a *ChannelError. The channel never
// reconnects and never sends application messages.
//
// Example Usage:
//
//	dialer, _ := ws.NewDialer(ws.DialerOptions{BaseURL: "ws://localhost:8000"})
//	ch, err := dialer.Open(ctx, generationID)
//	defer ch.Close()
//	for ev := range ch.Events() {
//		// apply ev
//	}
package ws
