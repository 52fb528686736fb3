package route

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is one entry of the registration table.
type Route struct {
	Method   string
	Path     string
	Name     string
	Handlers []gin.HandlerFunc
}

// Table is built once at startup and handed to the server, which mounts it
// on the engine. It is not safe for concurrent mutation.
type Table struct {
	routes []Route
	index  map[string]int
}

func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Add registers a route. The last handler is the endpoint, earlier ones act
// as route-level middleware.
func (t *Table) Add(method, path, name string, handlers ...gin.HandlerFunc) error {
	if len(handlers) == 0 {
		return fmt.Errorf("route %s %s: no handler", method, path)
	}
	key := method + " " + path
	if _, exists := t.index[key]; exists {
		return fmt.Errorf("route %s: already registered", key)
	}
	t.index[key] = len(t.routes)
	t.routes = append(t.routes, Route{Method: method, Path: path, Name: name, Handlers: handlers})
	return nil
}

func (t *Table) MustAdd(method, path, name string, handlers ...gin.HandlerFunc) {
	if err := t.Add(method, path, name, handlers...); err != nil {
		panic(err)
	}
}

func (t *Table) GET(path, name string, handlers ...gin.HandlerFunc) {
	t.MustAdd(http.MethodGet, path, name, handlers...)
}

func (t *Table) PUT(path, name string, handlers ...gin.HandlerFunc) {
	t.MustAdd(http.MethodPut, path, name, handlers...)
}

// Lookup returns the route registered for method and path.
func (t *Table) Lookup(method, path string) (Route, bool) {
	i, ok := t.index[method+" "+path]
	if !ok {
		return Route{}, false
	}
	return t.routes[i], true
}

// Routes returns a copy of the table in registration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Mount registers every route on r.
func (t *Table) Mount(r gin.IRoutes) {
	for _, rt := range t.routes {
		r.Handle(rt.Method, rt.Path, rt.Handlers...)
	}
}
