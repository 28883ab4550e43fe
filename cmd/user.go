package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/di"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage gallery accounts",
}

var userConfirmCmd = &cobra.Command{
	Use:   "confirm <email>",
	Short: "Mark an account's email as confirmed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, client *remote.Client) error {
			if err := client.ConfirmUser(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", color.GreenString("Confirmed"), args[0])
			return nil
		})
	},
}

var userRoleCmd = &cobra.Command{
	Use:   "role <email> <user|admin>",
	Short: "Change an account's role",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, client *remote.Client) error {
			if err := client.SetRole(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("%s is now %s\n", args[0], color.CyanString(args[1]))
			return nil
		})
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		withClient(func(ctx context.Context, client *remote.Client) error {
			users, err := remote.Select[models.User](ctx, client, remote.Query{
				Sort:  []remote.Sort{{Column: "created_at", Desc: true}},
				Range: &remote.Range{From: 0, To: limit - 1},
			})
			if err != nil {
				return err
			}
			return pterm.DefaultTable.WithHasHeader().WithData(userTable(users)).Render()
		})
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userConfirmCmd)
	userCmd.AddCommand(userRoleCmd)
	userCmd.AddCommand(userListCmd)
	userListCmd.Flags().Int("limit", 50, "Maximum number of accounts to list")
}

// userTable 构建账号表格
func userTable(users []models.User) pterm.TableData {
	data := pterm.TableData{{"Email", "Role", "Confirmed", "Created"}}
	for _, u := range users {
		role := u.Role
		if u.IsAdmin() {
			role = color.New(color.FgMagenta).Sprint(role)
		}
		confirmed := color.RedString("no")
		if u.Confirmed() {
			confirmed = color.GreenString("yes")
		}
		data = append(data, []string{u.Email, role, confirmed, u.CreatedAt.Format("2006-01-02 15:04")})
	}
	data = append(data, []string{"", "", "", strconv.Itoa(len(users)) + " total"})
	return data
}

// withClient 初始化服务容器后执行 fn
func withClient(fn func(ctx context.Context, client *remote.Client) error) {
	config.InitConfig()
	container := di.NewContainer(config.Get())
	ctx := context.Background()
	if err := container.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	err := fn(ctx, container.GetRemoteClient())
	_ = container.Close()
	if err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}
