package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/anoixa/image-gallery/api/core"
	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/internal/di"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// checkCmd 检查配置的依赖是否可用
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the database, cache and storage are reachable",
	Run: func(cmd *cobra.Command, args []string) {
		config.InitConfig()
		cfg := config.Get()

		container := di.NewContainer(cfg)
		if err := container.Init(context.Background()); err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		checks := core.RunHealthChecks(ctx, container.GetDatabaseProvider(), container.GetCache(), container.GetStorage())
		cancel()
		_ = container.Close()

		_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(healthTable(cfg, checks)).Render()
		if !core.Healthy(checks) {
			pterm.Error.Println("One or more dependencies are unavailable")
			os.Exit(1)
		}
		pterm.Success.Println("All dependencies are reachable")
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// healthTable 按名称排序的检查结果表
func healthTable(cfg *config.Config, checks map[string]string) pterm.TableData {
	backends := map[string]string{
		"database": cfg.DBType,
		"cache":    cfg.CacheType,
		"storage":  cfg.StorageType,
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	data := pterm.TableData{{"Component", "Backend", "Status"}}
	for _, name := range names {
		status := color.GreenString(checks[name])
		if checks[name] != "ok" {
			status = color.RedString(checks[name])
		}
		data = append(data, []string{name, backends[name], status})
	}
	data = append(data, []string{"version", config.Version, fmt.Sprintf("commit %s", config.CommitHash)})
	return data
}
