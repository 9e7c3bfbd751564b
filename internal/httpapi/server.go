// Package httpapi exposes pantry over HTTP. Authenticated routes manage
// tenancy, content type schemas, content items and fixed-schema entries;
// the /v1 routes serve published entries without credentials.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/pantry/internal/auth"
	"github.com/mesh-intelligence/pantry/internal/content"
	"github.com/mesh-intelligence/pantry/internal/fixed"
	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/scope"
	"github.com/mesh-intelligence/pantry/internal/tenancy"
)

// Deps are the components the server routes to.
type Deps struct {
	Resolver *scope.Resolver
	Registry *registry.Registry
	Items    *content.Store
	Entries  *fixed.Store
	Tenancy  *tenancy.Service
	Verifier auth.Verifier
	Logger   zerolog.Logger
	Version  string
}

// Server is the HTTP front end.
type Server struct {
	Deps
	now func() time.Time
}

// New returns a Server over d.
func New(d Deps) *Server {
	return &Server{Deps: d, now: time.Now}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.recoverPanics, s.logRequests)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	public := router.PathPrefix("/v1").Subrouter()
	public.HandleFunc("/health", s.handleHealth).Methods("GET")
	public.HandleFunc("/posts", s.handlePublicPosts).Methods("GET")
	public.HandleFunc("/posts/{slug}", s.handlePublicPost).Methods("GET")
	public.HandleFunc("/blogs", s.handlePublicBlogs).Methods("GET")
	public.HandleFunc("/blogs/{slug}", s.handlePublicBlog).Methods("GET")

	api := router.NewRoute().Subrouter()
	api.Use(s.authenticate)

	// Tenancy
	api.HandleFunc("/organizations", s.handleListOrganizations).Methods("GET")
	api.HandleFunc("/organizations", s.handleCreateOrganization).Methods("POST")
	api.HandleFunc("/organizations/{id}", s.handleDeleteOrganization).Methods("DELETE")
	api.HandleFunc("/organizations/{id}/projects", s.handleListProjects).Methods("GET")
	api.HandleFunc("/organizations/{id}/members", s.handleListMembers).Methods("GET")
	api.HandleFunc("/organizations/{id}/members", s.handleAddMember).Methods("POST")
	api.HandleFunc("/organizations/{id}/members", s.handleUpdateMember).Methods("PATCH")
	api.HandleFunc("/organizations/{id}/members", s.handleRemoveMember).Methods("DELETE")
	api.HandleFunc("/projects", s.handleCreateProject).Methods("POST")
	api.HandleFunc("/projects/{id}", s.handleDeleteProject).Methods("DELETE")

	// Schemas
	api.HandleFunc("/content-types", s.handleListTypes).Methods("GET")
	api.HandleFunc("/content-types", s.handleCreateType).Methods("POST")
	api.HandleFunc("/content-types/{id}", s.handleGetType).Methods("GET")
	api.HandleFunc("/content-types/{id}", s.handleUpdateType).Methods("PUT")
	api.HandleFunc("/content-types/{id}", s.handleDeleteType).Methods("DELETE")

	// Items
	api.HandleFunc("/content-items/{typeSlug}", s.handleListItems).Methods("GET")
	api.HandleFunc("/content-items/{typeSlug}", s.handleCreateItem).Methods("POST")
	api.HandleFunc("/content-items/{typeSlug}/{id}", s.handleGetItem).Methods("GET")
	api.HandleFunc("/content-items/{typeSlug}/{id}", s.handleUpdateItem).Methods("PUT")
	api.HandleFunc("/content-items/{typeSlug}/{id}", s.handleDeleteItem).Methods("DELETE")

	// Entries
	api.HandleFunc("/posts", s.handleListPosts).Methods("GET")
	api.HandleFunc("/posts", s.handleCreatePost).Methods("POST")
	api.HandleFunc("/posts/{id}", s.handleGetPost).Methods("GET")
	api.HandleFunc("/posts/{id}", s.handleUpdatePost).Methods("PUT")
	api.HandleFunc("/posts/{id}", s.handleDeletePost).Methods("DELETE")
	api.HandleFunc("/blogs", s.handleListBlogs).Methods("GET")
	api.HandleFunc("/blogs", s.handleCreateBlog).Methods("POST")
	api.HandleFunc("/blogs/{id}", s.handleGetBlog).Methods("GET")
	api.HandleFunc("/blogs/{id}", s.handleUpdateBlog).Methods("PUT")
	api.HandleFunc("/blogs/{id}", s.handleDeleteBlog).Methods("DELETE")

	return router
}
