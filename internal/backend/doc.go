// Package backend is the HTTP client for the Text-to-APK generation backend.
//
// Endpoints:
//   - POST /generate: submit a prompt, returns the generation id
//   - GET /frameworks, GET /categories: reference data
//   - GET /history?limit=N: past generations, newest first
//   - GET /status/{id}: poll one generation
//   - GET /health: backend health
//   - GET /download/{id}: the finished APK
//
// Requests go through resty on a pooled transport, a client-side rate
// limiter and a circuit breaker. Retries are disabled: every failure is
// reported to the caller, who decides whether to submit again.
//
// Example Usage:
//
//	client, err := backend.New(backend.Options{BaseURL: "http://localhost:8000"})
//	resp, err := client.CreateGeneration(ctx, backend.GenerateRequest{Prompt: prompt})
//	fmt.Println(client.DownloadURL(resp.GenerationID))
package backend
