package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/httputil"
)

// maxImportUpload bounds the multipart form size for CSV uploads (64 MB).
const maxImportUpload = 64 << 20

// CreateImport accepts a multipart CSV upload and queues it for the import
// runner. The form carries either list_id (existing audience) or new_list
// (a JSON object describing a list to create during the run).
func (h *Handlers) CreateImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportUpload); err != nil {
		httputil.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".csv" && ext != ".txt" {
		httputil.BadRequest(w, "only .csv uploads are accepted")
		return
	}

	imp := &domain.Import{Filename: header.Filename}

	listIDRaw := r.FormValue("list_id")
	newListRaw := r.FormValue("new_list")
	switch {
	case listIDRaw != "" && newListRaw != "":
		httputil.BadRequest(w, "provide list_id or new_list, not both")
		return
	case listIDRaw != "":
		listID, err := uuid.Parse(listIDRaw)
		if err != nil {
			httputil.BadRequest(w, "invalid list_id")
			return
		}
		list, err := h.store.GetList(r.Context(), listID)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		if list == nil {
			httputil.NotFound(w, "list not found")
			return
		}
		imp.ListID = &listID
	case newListRaw != "":
		var spec domain.NewListSpec
		if err := json.Unmarshal([]byte(newListRaw), &spec); err != nil {
			httputil.BadRequest(w, "invalid new_list JSON")
			return
		}
		if spec.Name == "" {
			httputil.BadRequest(w, "new_list.name is required")
			return
		}
		imp.NewList = &spec
	default:
		httputil.BadRequest(w, "provide list_id or new_list")
		return
	}

	// The stored key is server-generated; the original filename is kept
	// only as display metadata.
	imp.StoredPath = "imports/" + uuid.NewString() + ".csv"
	if err := h.files.Save(r.Context(), imp.StoredPath, file); err != nil {
		httputil.InternalError(w, err)
		return
	}

	if err := h.store.CreateImport(r.Context(), imp); err != nil {
		// Leave no orphaned upload behind when the record insert fails.
		_ = h.files.Delete(r.Context(), imp.StoredPath)
		httputil.InternalError(w, err)
		return
	}

	h.log.Info("import queued",
		"import_id", imp.ID.String(),
		"filename", imp.Filename)
	httputil.Created(w, imp)
}

// GetImports lists recent imports, newest first.
func (h *Handlers) GetImports(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	imports, err := h.store.GetImports(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"imports": imports})
}

// GetImport returns one import with its progress percentage.
func (h *Handlers) GetImport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "importID"))
	if !ok {
		return
	}
	imp, err := h.store.GetImport(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if imp == nil {
		httputil.NotFound(w, "import not found")
		return
	}
	httputil.OK(w, map[string]interface{}{
		"import":  imp,
		"percent": imp.Percent(),
	})
}
