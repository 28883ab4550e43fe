package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"math/rand"
	"sync"

	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/internal/di"
	"github.com/anoixa/image-gallery/internal/gallery"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/disintegration/imaging"
	fcolor "github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the gallery with sample content",
}

var seedDemoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Upload generated images as a demo account",
	Run: func(cmd *cobra.Command, args []string) {
		opts := seedOptions{}
		opts.email, _ = cmd.Flags().GetString("email")
		opts.password, _ = cmd.Flags().GetString("password")
		opts.count, _ = cmd.Flags().GetInt("count")
		opts.workers, _ = cmd.Flags().GetInt("workers")

		if err := runSeedDemo(opts); err != nil {
			log.Fatalf("Seed failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedDemoCmd)
	seedDemoCmd.Flags().String("email", "demo@example.com", "Demo account email")
	seedDemoCmd.Flags().String("password", "demo-password", "Demo account password, used only when the account is created")
	seedDemoCmd.Flags().Int("count", 24, "Number of images to upload")
	seedDemoCmd.Flags().Int("workers", 4, "Concurrent uploads")
}

type seedOptions struct {
	email    string
	password string
	count    int
	workers  int
}

// seedResult 每张图片的上传结果
type seedResult struct {
	Title string
	Err   error
}

var seedSubjects = []string{"mountain", "river", "nebula", "harbor", "forest", "dune", "glacier", "skyline", "meadow", "canyon"}

// fixedIdentity 以固定账号身份操作图库
type fixedIdentity struct {
	user *models.User
}

func (f fixedIdentity) CurrentUser() *models.User { return f.user }

func runSeedDemo(opts seedOptions) error {
	config.InitConfig()
	container := di.NewContainer(config.Get())
	ctx := context.Background()
	if err := container.Init(ctx); err != nil {
		return err
	}
	defer container.Close()

	pterm.DefaultHeader.WithFullWidth().WithBackgroundStyle(pterm.NewStyle(pterm.BgLightMagenta)).WithTextStyle(pterm.NewStyle(pterm.FgBlack)).Println("GALLERY DEMO SEEDER")
	pterm.Println()
	_ = pterm.DefaultTable.WithBoxed().WithData(pterm.TableData{
		{"Account", fcolor.New(fcolor.FgCyan).Sprint(opts.email)},
		{"Images", fcolor.New(fcolor.FgYellow).Sprintf("%d", opts.count)},
		{"Concurrency", fcolor.New(fcolor.FgYellow).Sprintf("%d workers", opts.workers)},
	}).Render()
	pterm.Println()

	bar, _ := pterm.DefaultProgressbar.
		WithTotal(opts.count).
		WithTitle("Uploading images...").
		WithShowCount(true).
		WithShowElapsedTime(true).
		Start()

	results, err := seedDemo(ctx, container.GetRemoteClient(), container.GetGallery(), opts, func() { bar.Increment() })
	_, _ = bar.Stop()
	if err != nil {
		return err
	}

	var failures []seedResult
	for _, r := range results {
		if r.Err != nil {
			failures = append(failures, r)
		}
	}

	pterm.Println()
	if len(failures) == 0 {
		pterm.DefaultSection.WithStyle(pterm.NewStyle(pterm.FgGreen)).Println("SEEDING COMPLETED SUCCESSFULLY")
		pterm.Info.Printf("Uploaded %d images as %s.\n", len(results), opts.email)
		return nil
	}

	pterm.DefaultSection.WithStyle(pterm.NewStyle(pterm.FgYellow)).Println("COMPLETED WITH ERRORS")
	pterm.Info.Printf("Success: %d | Failed: %d\n", len(results)-len(failures), len(failures))
	pterm.Error.Println("Failure Report:")
	for _, f := range failures {
		fmt.Printf(" - %s: %v\n", fcolor.RedString(f.Title), f.Err)
	}
	return nil
}

// seedDemo 注册或复用演示账号，然后并发上传生成的图片
func seedDemo(ctx context.Context, client *remote.Client, svc *gallery.Service, opts seedOptions, progress func()) ([]seedResult, error) {
	if opts.count <= 0 {
		return nil, errors.New("count must be positive")
	}
	if opts.workers <= 0 {
		opts.workers = 1
	}

	user, err := demoUser(ctx, client, opts.email, opts.password)
	if err != nil {
		return nil, err
	}
	categories, err := svc.Categories(ctx)
	if err != nil {
		return nil, err
	}

	manager := svc.NewManager(fixedIdentity{user: user})
	results := make([]seedResult, opts.count)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)
	for i := 0; i < opts.count; i++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(i) + 1))
			subject := seedSubjects[i%len(seedSubjects)]
			title := fmt.Sprintf("%s #%d", subject, i+1)

			upload := gallery.Upload{
				Filename: fmt.Sprintf("demo-%03d.png", i+1),
				Title:    title,
			}
			if len(categories) > 0 {
				upload.CategoryIDs = []uint{categories[rng.Intn(len(categories))].ID}
			}

			data, err := demoImage(rng, 640+rng.Intn(4)*160, 480+rng.Intn(3)*120)
			if err == nil {
				upload.File = bytes.NewReader(data)
				var img *models.Image
				if img, err = manager.UploadImage(gctx, upload); err == nil {
					_, err = manager.RateImage(gctx, img.ID, 3+rng.Intn(3))
				}
			}

			mu.Lock()
			results[i] = seedResult{Title: title, Err: err}
			mu.Unlock()
			if progress != nil {
				progress()
			}
			// 单张失败不影响其余上传，只在上下文取消时中止
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// demoUser 账号不存在时注册，并确保邮箱已确认
func demoUser(ctx context.Context, client *remote.Client, email, password string) (*models.User, error) {
	user, err := remote.First[models.User](ctx, client, remote.Eq("email", email))
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound):
		if user, err = client.SignUp(ctx, email, password, remote.SignUpMeta{DisplayName: "Demo"}); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !user.Confirmed() {
		if err := client.ConfirmUser(ctx, user.Email); err != nil {
			return nil, err
		}
	}
	return client.GetUser(ctx, user.ID)
}

// demoImage 生成一张带色块的渐变图
func demoImage(rng *rand.Rand, width, height int) ([]byte, error) {
	from := color.NRGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255}
	to := color.NRGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255}

	img := imaging.New(width, height, from)
	for y := 0; y < height; y++ {
		t := float64(y) / float64(height)
		row := color.NRGBA{
			R: lerp(from.R, to.R, t),
			G: lerp(from.G, to.G, t),
			B: lerp(from.B, to.B, t),
			A: 255,
		}
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, row)
		}
	}

	size := width / 4
	patch := imaging.New(size, size, color.NRGBA{R: 255, G: 255, B: 255, A: 160})
	img = imaging.Overlay(img, patch, image.Pt(rng.Intn(width-size), rng.Intn(height-size)), 0.6)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
