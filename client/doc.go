// Package client talks to a reposandbox worker over HTTP.
//
//	c := client.New("http://sandbox:8080", client.WithSecret(secret))
//	if err := c.WaitForReady(ctx, time.Minute); err != nil {
//	    return err
//	}
//	res, err := c.Clone(ctx, "https://github.com/org/repo", "v1.2.0")
//	out := c.ExecuteTool(ctx, res.Slug, res.SHA, "rg", json.RawMessage(`{"pattern":"TODO"}`))
//
// Failed requests return a PlatformError rebuilt from the worker's response,
// so errors.GetCode works the same on both sides of the wire.
package client
