package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/spacex-launch-tracker/internal/apierr"
	"github.com/onnwee/spacex-launch-tracker/internal/export"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/tracing"
)

// ExportFileBase is the attachment name without extension.
const ExportFileBase = "spacex_launches"

// ExportLaunches handles GET /api/export?format=json|csv|yaml for downloading
// the filtered launches.
func ExportLaunches(data LaunchData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), "handlers.ExportLaunches")
		defer span.End()

		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("format", err.Error()))
			return
		}
		span.SetAttributes(attribute.String("format", string(format)))

		records, ok := filteredRecords(w, r.WithContext(ctx), data)
		if !ok {
			return
		}
		span.SetAttributes(attribute.Int("rows_count", len(records)))

		// Render fully before writing so an encoding failure still yields a JSON error.
		var buf bytes.Buffer
		if err := export.Write(&buf, format, records); err != nil {
			logger.ErrorContext(ctx, "failed to render export", "error", err, "format", format)
			tracing.Fail(span, err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("Failed to render export"))
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, ExportFileBase, format.Ext()))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}
