package hdx

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"k8s.io/klog/v2"

	"github.com/hdx-scrapers/icpac-cdi/internal/cdi"
)

// PublishOptions are attached to every write of a run.
type PublishOptions struct {
	BatchID         string
	UpdatedByScript string
	// Static is merged into the package dict after assembly.
	Static map[string]any
}

// Publish creates or updates ds and uploads its resources. Resources already
// in the catalog but absent from ds are left in place; a resource with the
// same name is replaced by the new upload.
func (c *Client) Publish(ctx context.Context, ds cdi.Dataset, opts PublishOptions) error {
	log := klog.FromContext(ctx).WithValues("dataset", ds.Name)

	payload := BuildPayload(ds, opts.Static)
	if opts.UpdatedByScript != "" {
		payload["updated_by_script"] = fmt.Sprintf("%s (%s)", opts.UpdatedByScript, time.Now().UTC().Format(time.RFC3339))
	}
	if opts.BatchID != "" {
		payload["batch"] = opts.BatchID
	}

	existing, err := c.showPackage(ctx, ds.Name)
	switch {
	case IsNotFoundError(err):
		var created ckanPackage
		if err := c.Action(ctx, "package_create", nil, payload, &created); err != nil {
			return fmt.Errorf("create dataset %s: %w", ds.Name, err)
		}
		existing = created
		log.Info("created dataset")
	case err != nil:
		return fmt.Errorf("read dataset %s: %w", ds.Name, err)
	default:
		payload["id"] = existing.ID
		if err := c.Action(ctx, "package_patch", nil, payload, nil); err != nil {
			return fmt.Errorf("update dataset %s: %w", ds.Name, err)
		}
		log.Info("updated dataset", "existingResources", len(existing.Resources))
	}

	ids := make(map[string]string, len(existing.Resources))
	for _, r := range existing.Resources {
		ids[r.Name] = r.ID
	}

	for _, r := range ds.Resources {
		fields := ResourceFields(r)
		action := "resource_create"
		if id, ok := ids[r.Name]; ok {
			action = "resource_update"
			fields["id"] = id
		} else {
			fields["package_id"] = existing.ID
		}
		if opts.BatchID != "" {
			fields["batch"] = opts.BatchID
		}

		if err := c.upload(ctx, action, fields, r.FilePath); err != nil {
			return fmt.Errorf("upload resource %s: %w", r.Name, err)
		}
		log.Info("uploaded resource", "resource", r.Name, "action", action)
	}

	return nil
}

// upload posts fields and the file at path as a multipart form. The body is
// streamed from disk and rebuilt for every attempt.
func (c *Client) upload(ctx context.Context, action string, fields map[string]string, path string) error {
	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(path); err == nil {
		contentType = mt.String()
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return c.do(ctx, c.uploads, nil, func() (*http.Request, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}

		pr, pw := io.Pipe()
		w := multipart.NewWriter(pw)
		go func() {
			defer f.Close()
			pw.CloseWithError(writeForm(w, keys, fields, f, contentType))
		}()

		req, err := http.NewRequest(http.MethodPost, c.actionURL(action, nil), pr)
		if err != nil {
			pr.Close()
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	})
}

func writeForm(w *multipart.Writer, keys []string, fields map[string]string, f *os.File, contentType string) error {
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="upload"; filename="%s"`, filepath.Base(f.Name())))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", f.Name(), err)
	}
	return w.Close()
}
