package export

import (
	"fmt"
	"time"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/fit"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
	"github.com/xpayn3/cyclinghub-server/pkg/types"
)

// FileName is the download name for a route exported on day t.
func FileName(t time.Time, format types.ExportFormat) string {
	return fmt.Sprintf("route-%s.%s", t.Format("2006-01-02"), format.Extension())
}

// Render encodes a route snapshot in one of the route formats.
func Render(enc *fit.Encoder, format types.ExportFormat, s routegraph.Snapshot, name string) ([]byte, error) {
	switch format {
	case types.FormatFITCourse:
		return CourseFromGraph(enc, s, name)
	case types.FormatGPX:
		return SnapshotGPX(name, s)
	case types.FormatGeoJSON:
		if len(s.Waypoints) == 0 {
			return nil, hubErrors.ErrEmptyExportInput.WithMessage("no route to export")
		}
		return GeoJSON(s)
	default:
		return nil, hubErrors.ErrValidation.WithMessagef("%s is not a route format", format)
	}
}
