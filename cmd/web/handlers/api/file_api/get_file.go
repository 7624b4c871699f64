// Package file_api serves stored downloads.
package file_api

import (
	"log/slog"
	"net/url"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/vidfetch/cmd/web/handlers/api/fileserver"
	"thirdcoast.systems/vidfetch/cmd/web/handlers/common"
)

// HandleGetFile streams the file named by the wildcard segment as an
// attachment. Anything that does not resolve to a regular file inside root,
// traversal attempts included, is a 404.
func HandleGetFile(root string, fs *fileserver.FileServer) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.Param("*")
		// echo hands back the raw segment when the path carried escapes.
		if c.Request().URL.RawPath != "" {
			if v, err := url.PathUnescape(name); err == nil {
				name = v
			}
		}

		p, err := fileserver.Resolve(root, name)
		if err != nil {
			slog.Debug("get_file rejected", "name", name, "error", err)
			return common.ErrNotFound(common.MsgFileNotFound)
		}

		if err := fs.ServeAttachment(c, p); err != nil {
			return common.ErrNotFound(common.MsgFileNotFound)
		}
		return nil
	}
}
