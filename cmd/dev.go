package cmd

import (
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/anoixa/image-gallery/internal/devserver"
	"github.com/anoixa/image-gallery/internal/render"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// devCmd 本地预览静态资源
var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Serve a directory of static files for local frontend work",
	Long: `Serve a directory of static files for local frontend work.
Without --dir the embedded gallery assets are served.
Unknown extensions are sent as text/plain.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		addr, _ := cmd.Flags().GetString("addr")
		origins, _ := cmd.Flags().GetStringSlice("cors-origin")

		files := render.StaticFS()
		source := "embedded assets"
		if dir != "" {
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				log.Fatalf("Directory %s is not readable", dir)
			}
			files = os.DirFS(dir)
			source = dir
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           devserver.New(devserver.Config{Files: files, Origins: origins}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		log.Printf("Dev server serving %s on %s", color.CyanString(source), color.GreenString("http://localhost"+addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Dev server failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(devCmd)
	devCmd.Flags().String("dir", "", "Directory to serve (defaults to the embedded assets)")
	devCmd.Flags().String("addr", ":8000", "Listen address")
	devCmd.Flags().StringSlice("cors-origin", nil, "Allowed CORS origins (defaults to any)")
}
