// Package api provides the HTTP surface of SporeHut: a small HTML control
// page, a JSON REST API, a WebSocket event stream and the Prometheus
// scrape endpoint.
//
// Every device read or write goes through a controller.Client; the server
// never touches the device registry.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
