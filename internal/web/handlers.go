package web

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/reblock/internal/block"
	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/ops"
	"github.com/hpungsan/reblock/internal/transform"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	deps     *ops.Deps
	renderer *Renderer
}

// scrapeRequest is the JSON body of POST /scrape.
type scrapeRequest struct {
	URL string `json:"url"`
}

// transformRequest is the JSON body of POST /transform.
type transformRequest struct {
	Text   string `json:"text"`
	Label  string `json:"label"`
	Action string `json:"action"`
}

// transformResponse adds a rendered preview to the generated text.
type transformResponse struct {
	*ops.TransformOutput
	HTML template.HTML `json:"html"`
}

// img2imgRequest is the JSON body of POST /img2img.
type img2imgRequest struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// saveRequest is the JSON body of the save endpoints. EntryID is only read by
// POST /save_modifications.
type saveRequest struct {
	Blocks  map[string]string `json:"blocks"`
	EntryID string            `json:"entry_id"`
}

// HandleIndex handles GET /: the empty scrape form.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "editor", h.editorData("", "", nil, nil))
}

// HandleScrape handles POST /scrape: fetch, extract and store a page.
func (h *Handlers) HandleScrape(w http.ResponseWriter, r *http.Request) {
	var rawURL string
	if isJSONBody(r) {
		var req scrapeRequest
		if err := decodeJSON(r, &req); err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		rawURL = req.URL
	} else {
		if err := r.ParseForm(); err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
			return
		}
		rawURL = r.FormValue("url")
	}

	result, err := ops.Scrape(r.Context(), h.deps, ops.ScrapeInput{URL: rawURL})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "editor", h.editorData(result.URL, result.ID, result.Blocks, result.Blocks))
}

// HandleEdit handles GET /pages/{id}/edit: reopen the editor on a stored page.
func (h *Handlers) HandleEdit(w http.ResponseWriter, r *http.Request) {
	rec, err := ops.Fetch(r.Context(), h.deps, ops.FetchInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "editor", h.editorData(rec.URL, rec.ID, rec.OriginalBlocks, rec.ModifiedBlocks))
}

// HandleHistory handles GET /history: list stored pages, most recent first.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.deps, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "history", HistoryPageData{
		PageData: PageData{
			Title:   "History",
			Version: h.renderer.version,
			Nav:     "history",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleInfo handles GET /pages/{id}: metadata and counters of one page.
func (h *Handlers) HandleInfo(w http.ResponseWriter, r *http.Request) {
	rec, err := ops.Fetch(r.Context(), h.deps, ops.FetchInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, rec)
		return
	}

	h.renderer.renderPage(w, r, "info", InfoPageData{
		PageData: PageData{
			Title:   rec.Title,
			Version: h.renderer.version,
			Nav:     "history",
		},
		Page:    rec.Summarize(),
		Changed: len(rec.Changed()),
	})
}

// HandleChanges handles GET /pages/{id}/changes: originals next to changed blocks.
func (h *Handlers) HandleChanges(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Changed(r.Context(), h.deps, ops.ChangedInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "changes", ChangesPageData{
		PageData: PageData{
			Title:   "Changes: " + result.Title,
			Version: h.renderer.version,
			Nav:     "history",
		},
		Changes: result,
	})
}

// HandleTransform handles POST /transform: rewrite one text block.
func (h *Handlers) HandleTransform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Transform(r.Context(), h.deps, ops.TransformInput{
		Text:   req.Text,
		Label:  req.Label,
		Action: req.Action,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, transformResponse{
		TransformOutput: result,
		HTML:            renderMarkdown(result.Result),
	})
}

// HandleImg2Img handles POST /img2img: re-render one image block.
func (h *Handlers) HandleImg2Img(w http.ResponseWriter, r *http.Request) {
	var req img2imgRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Img2Img(r.Context(), h.deps, ops.Img2ImgInput{
		URL:    req.URL,
		Prompt: req.Prompt,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleSave handles POST /pages/{id}/modifications: save a batch of edits.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.save(w, r, r.PathValue("id"), req.Blocks)
}

// HandleSaveByEntryID handles POST /save_modifications, where the record id
// travels in the body as entry_id.
func (h *Handlers) HandleSaveByEntryID(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.save(w, r, req.EntryID, req.Blocks)
}

func (h *Handlers) save(w http.ResponseWriter, r *http.Request, id string, edits map[string]string) {
	result, err := ops.Save(r.Context(), h.deps, ops.SaveInput{ID: id, Edits: edits})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleDelete handles POST /pages/{id}/delete and DELETE /pages/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Delete(r.Context(), h.deps, ops.DeleteInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: redirect via HX-Redirect header
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/history")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/history", http.StatusSeeOther)
}

// HandleClear handles POST /history/clear: delete every stored page.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	result, err := ops.Clear(r.Context(), h.deps, ops.ClearInput{Confirm: r.FormValue("confirm") == "true"})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/history")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/history", http.StatusSeeOther)
}

func (h *Handlers) editorData(url, id string, original, modified block.Blocks) EditorPageData {
	values := make(map[string]string, len(modified))
	for _, b := range modified {
		values[b.BlockLabel()] = b.Value()
	}

	title := "Scrape a page"
	if url != "" {
		title = "Edit " + url
	}

	return EditorPageData{
		PageData: PageData{
			Title:   title,
			Version: h.renderer.version,
			Nav:     "scrape",
		},
		URL:      url,
		EntryID:  id,
		Original: original,
		Modified: values,
		Actions:  transform.Actions,
	}
}

// decodeJSON decodes a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
