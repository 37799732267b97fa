// Package server wires configuration, storage strategies and token
// verification into a running micropub endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/indieinfra/quill/config"
	"github.com/indieinfra/quill/micropub"
	"github.com/indieinfra/quill/server/auth"
	"github.com/indieinfra/quill/server/util"
	"github.com/indieinfra/quill/storage/content"
	"github.com/indieinfra/quill/storage/media"
)

// App binds the storage strategies and token verifier behind the micropub
// callbacks.
type App struct {
	cfg      *config.Config
	content  content.Store
	media    media.Store
	verifier *auth.Verifier
}

func NewApp(cfg *config.Config, contentStore content.Store, mediaStore media.Store) *App {
	return &App{
		cfg:      cfg,
		content:  contentStore,
		media:    mediaStore,
		verifier: auth.NewVerifier(cfg),
	}
}

// Callbacks assembles the operation callbacks handed to the endpoint.
func (a *App) Callbacks() micropub.Callbacks {
	return micropub.Callbacks{
		VerifyToken: a.verifyToken,
		Config:      a.configQuery,
		Source:      a.sourceQuery,
		Create:      a.create,
		Update:      a.update,
		Delete:      a.delete,
		Undelete:    a.undelete,
		Media:       a.uploadMedia,
	}
}

func (a *App) verifyToken(ctx context.Context, token string) micropub.Result {
	details, err := a.verifier.Verify(ctx, token)
	if err != nil {
		util.Errorf(ctx, "token verification failed: %v", err)
		return serverError("could not verify access token")
	}

	if details == nil {
		return nil
	}

	return micropub.Payload{
		"me":        details.Me,
		"client_id": details.ClientId,
		"scope":     details.Scope,
	}
}

// hasScope checks the authenticated principal's scope grant.
func hasScope(ctx context.Context, scope auth.Scope) bool {
	principal := micropub.PrincipalFromContext(ctx)
	if principal == nil {
		return false
	}

	grant, ok := principal["scope"].(string)
	if !ok {
		return false
	}

	details := auth.TokenDetails{Scope: grant}
	return details.HasScope(scope)
}

func (a *App) configQuery(ctx context.Context, _ url.Values) micropub.Result {
	return micropub.Payload{
		"media-endpoint": fmt.Sprintf("%v/media", strings.TrimSuffix(a.cfg.Server.PublicUrl, "/")),
		"syndicate-to":   syndicationTargets(a.cfg.Micropub.SyndicateTo),
	}
}

func syndicationTargets(targets []config.SyndicateTo) []any {
	out := make([]any, 0, len(targets))
	for _, t := range targets {
		entry := map[string]any{
			"uid":  t.Uid,
			"name": t.Name,
		}
		if t.Service != nil {
			entry["service"] = serviceInfo(t.Service)
		}
		if t.User != nil {
			entry["user"] = serviceInfo(t.User)
		}
		out = append(out, entry)
	}
	return out
}

func serviceInfo(info *config.ServiceInfo) map[string]any {
	return map[string]any{
		"name":  info.Name,
		"url":   info.Url,
		"photo": info.Photo,
	}
}

func (a *App) sourceQuery(ctx context.Context, url string, properties []string) micropub.Result {
	doc, err := a.content.Get(ctx, url)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil
		}
		util.Errorf(ctx, "source query failed for %q: %v", url, err)
		return serverError("could not load post")
	}

	if len(properties) == 0 {
		return micropub.Payload{
			"type":       doc.Type,
			"properties": doc.Properties,
		}
	}

	filtered := map[string]any{}
	for _, name := range properties {
		if values, ok := doc.Properties[name]; ok {
			filtered[name] = values
		}
	}

	return micropub.Payload{"properties": filtered}
}

func (a *App) create(ctx context.Context, doc micropub.Document, files []micropub.File) micropub.Result {
	if !hasScope(ctx, auth.ScopeCreate) {
		return micropub.Fail(micropub.CodeInsufficientScope, "create scope is required to create posts")
	}

	if doc.Properties == nil {
		doc.Properties = map[string][]any{}
	}

	if err := a.attachFiles(ctx, &doc, files); err != nil {
		util.Errorf(ctx, "failed to store uploaded files: %v", err)
		return serverError("could not store uploaded files")
	}

	slug, err := a.deriveSlug(ctx, doc)
	if err != nil {
		util.Errorf(ctx, "failed to derive slug: %v", err)
		return serverError("could not derive a slug for the post")
	}

	delete(doc.Properties, "mp-slug")
	doc.Properties["slug"] = []any{slug}

	url, err := a.content.Create(ctx, doc)
	if err != nil {
		util.Errorf(ctx, "failed to create post: %v", err)
		return serverError("could not create post")
	}

	return micropub.Location(url)
}

// attachFiles uploads files that arrived with a multipart create request and
// records their public URLs under the part's field name.
func (a *App) attachFiles(ctx context.Context, doc *micropub.Document, files []micropub.File) error {
	for _, f := range files {
		url, err := a.media.Upload(ctx, f.File, f.Header)
		if err != nil {
			return err
		}

		field := strings.TrimSuffix(f.Field, "[]")
		if field == "" || field == "file" {
			field = "photo"
		}

		doc.Properties[field] = append(doc.Properties[field], url)
	}

	return nil
}

// deriveSlug picks a slug for a new post: a client-provided mp-slug wins,
// then one generated from the document text, then a UUID. Collisions get a
// short UUID suffix.
func (a *App) deriveSlug(ctx context.Context, doc micropub.Document) (string, error) {
	slug := ""
	if values, ok := doc.Properties["mp-slug"]; ok && len(values) > 0 {
		if s, ok := values[0].(string); ok {
			slug = strings.TrimSpace(s)
		}
	}

	if slug == "" {
		slug = util.GenerateSlug(doc)
	}

	if slug == "" {
		slug = uuid.New().String()
	}

	exists, err := a.content.ExistsBySlug(ctx, slug)
	if err != nil {
		return "", err
	}

	if exists {
		slug = fmt.Sprintf("%s-%s", slug, uuid.New().String()[:8])
	}

	return slug, nil
}

func (a *App) update(ctx context.Context, url string, body map[string]any) micropub.Result {
	if !hasScope(ctx, auth.ScopeUpdate) {
		return micropub.Fail(micropub.CodeInsufficientScope, "update scope is required to update posts")
	}

	replacements := changeSet(body["replace"])
	additions := changeSet(body["add"])

	var deletions any
	switch d := body["delete"].(type) {
	case map[string]any:
		deletions = changeSet(d)
	case []any:
		deletions = d
	}

	newURL, err := a.content.Update(ctx, url, replacements, additions, deletions)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return micropub.Fail(micropub.CodeInvalidRequest, "post not found")
		}
		util.Errorf(ctx, "failed to update post %q: %v", url, err)
		return serverError("could not update post")
	}

	if newURL != "" && newURL != url {
		return micropub.Location(newURL)
	}

	return micropub.Done{}
}

// changeSet converts a decoded replace/add/delete object into property change
// lists, wrapping scalar values.
func changeSet(raw any) map[string][]any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	out := make(map[string][]any, len(obj))
	for key, value := range obj {
		switch v := value.(type) {
		case []any:
			out[key] = v
		default:
			out[key] = []any{v}
		}
	}

	return out
}

func (a *App) delete(ctx context.Context, url string) micropub.Result {
	if !hasScope(ctx, auth.ScopeDelete) {
		return micropub.Fail(micropub.CodeInsufficientScope, "delete scope is required to delete posts")
	}

	if err := a.content.Delete(ctx, url); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return micropub.Fail(micropub.CodeInvalidRequest, "post not found")
		}
		util.Errorf(ctx, "failed to delete post %q: %v", url, err)
		return serverError("could not delete post")
	}

	return micropub.Done{}
}

func (a *App) undelete(ctx context.Context, url string) micropub.Result {
	if !hasScope(ctx, auth.ScopeUndelete) && !hasScope(ctx, auth.ScopeDelete) {
		return micropub.Fail(micropub.CodeInsufficientScope, "undelete scope is required to restore posts")
	}

	newURL, moved, err := a.content.Undelete(ctx, url)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return micropub.Fail(micropub.CodeInvalidRequest, "post not found")
		}
		util.Errorf(ctx, "failed to undelete post %q: %v", url, err)
		return serverError("could not undelete post")
	}

	if moved {
		return micropub.Location(newURL)
	}

	return micropub.Done{}
}

func (a *App) uploadMedia(ctx context.Context, file micropub.File) micropub.Result {
	if !hasScope(ctx, auth.ScopeMedia) && !hasScope(ctx, auth.ScopeCreate) {
		return micropub.Fail(micropub.CodeInsufficientScope, "media scope is required to upload files")
	}

	url, err := a.media.Upload(ctx, file.File, file.Header)
	if err != nil {
		util.Errorf(ctx, "failed to upload media: %v", err)
		return serverError("could not store uploaded file")
	}

	return micropub.Location(url)
}

// serverError produces a raw 500 response in the protocol's error body shape.
func serverError(description string) micropub.Raw {
	return micropub.Raw{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `{"error":"server_error","error_description":%q}`, description)
	})}
}
