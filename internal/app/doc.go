// Package app wires the generation client together.
//
// App is the composition root shared by the CLI and the local control API:
// it turns a config.Config into a backend client, a progress channel
// dialer, the history cache, the catalog loader and the session controller.
//
// Example Usage:
//
//	a, err := app.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//	a.Start(ctx)
//	session, err := a.Sessions.Submit(ctx, "A simple calculator", "")
package app
