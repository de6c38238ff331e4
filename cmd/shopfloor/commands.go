package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/shopfloor/plugin/extract"
	"github.com/hrygo/shopfloor/plugin/storage"
	"github.com/hrygo/shopfloor/server/app"
	"github.com/hrygo/shopfloor/server/media"
	"github.com/hrygo/shopfloor/server/stats"
	"github.com/hrygo/shopfloor/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the entity store is reachable and optionally create media buckets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		buckets, _ := cmd.Flags().GetBool("buckets")
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			if err := a.Store.Ping(ctx); err != nil {
				return errors.Wrap(err, "entity store unreachable")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store: ok (%s)\n", a.Profile.Driver)
			if buckets {
				if err := a.Media.EnsureBuckets(ctx, storage.DefaultBuckets()); err != nil {
					return errors.Wrap(err, "failed to ensure buckets")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "media: buckets ready (%s)\n", a.Profile.MediaBackend)
			}
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "List inventory rows whose name contains query, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
			if err := a.Inventory.Search(ctx, query); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
			}
			return printEntities(cmd, a.Inventory.Results())
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the inventory and list stock alerts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, true, func(_ context.Context, a *app.App) error {
			fmt.Fprint(cmd.OutOrStdout(), a.Stats.Collect().GetSummary())
			return nil
		})
	},
}

var addMaterialCmd = &cobra.Command{
	Use:   "add-material",
	Short: "Create a material, uploading its photo and generating its identifier code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		m := &store.Material{}
		m.Name, _ = flags.GetString("name")
		m.Reference, _ = flags.GetString("reference")
		m.Units, _ = flags.GetString("units")
		m.Stock, _ = flags.GetString("stock")
		m.MinStock, _ = flags.GetString("min-stock")
		m.Price, _ = flags.GetString("price")
		m.Category, _ = flags.GetString("category")
		m.Supplier, _ = flags.GetString("supplier")
		m.Location, _ = flags.GetString("location")
		m.Description, _ = flags.GetString("description")
		image, _ := flags.GetString("image")
		from, _ := flags.GetString("from")
		if strings.TrimSpace(m.Name) == "" && from == "" {
			return errors.New("--name or --from is required")
		}

		return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
			if from != "" {
				src, err := sourceFromPath(from)
				if err != nil {
					return err
				}
				extracted, err := a.Extractor.ExtractMaterial(ctx, src)
				if err != nil {
					return err
				}
				m = extract.PreferExisting(m, extracted)
			}
			if image != "" {
				f, err := media.FileFromPath(image)
				if err != nil {
					return err
				}
				url, err := a.Images.UploadImage(ctx, f)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: photo not stored:", err)
				}
				m.ImageURL = url
			}
			created, err := a.Inventory.AddItem(ctx, m)
			if err != nil {
				return err
			}
			return printJSON(cmd, created)
		})
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <image>",
	Short: "Normalize and upload an image, printing its public address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			f, err := media.FileFromPath(args[0])
			if err != nil {
				return err
			}
			url, err := a.Images.UploadImage(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		})
	},
}

var qrCmd = &cobra.Command{
	Use:   "qr <kind> <id>",
	Short: "Render the identifier code of a row, or store it with --persist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := store.ParseKind(args[0])
		if err != nil {
			return err
		}
		id := args[1]
		persist, _ := cmd.Flags().GetBool("persist")
		out, _ := cmd.Flags().GetString("out")

		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			if persist {
				url, err := a.Inventory.EnsureCode(ctx, kind, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			}
			if out != "" {
				png, err := a.Encoder.PNG(string(kind), id)
				if err != nil {
					return err
				}
				return os.WriteFile(out, png, 0o644)
			}
			dataURL := a.Encoder.Encode(string(kind), id)
			if dataURL == "" {
				return errors.New("failed to encode identifier")
			}
			fmt.Fprintln(cmd.OutOrStdout(), dataURL)
			return nil
		})
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract material fields from a document, a photo or --text",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		if len(args) == 0 && text == "" {
			return errors.New("a file or --text is required")
		}
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			src := extract.Source{Text: text}
			if len(args) == 1 {
				var err error
				if src, err = sourceFromPath(args[0]); err != nil {
					return err
				}
			}
			m, err := a.Extractor.ExtractMaterial(ctx, src)
			if err != nil {
				return err
			}
			return printJSON(cmd, m)
		})
	},
}

func init() {
	checkCmd.Flags().Bool("buckets", false, "create missing media buckets")

	f := addMaterialCmd.Flags()
	f.String("name", "", "material name")
	f.String("reference", "", "internal reference")
	f.String("units", "", "unit of measure")
	f.String("stock", "", "stock on hand")
	f.String("min-stock", "", "stock alert threshold")
	f.String("price", "", "unit price")
	f.String("category", "", "category (Cuero, Textil, Hilo, ...)")
	f.String("supplier", "", "supplier name")
	f.String("location", "", "warehouse location")
	f.String("description", "", "description")
	f.String("image", "", "photo to upload")
	f.String("from", "", "document or photo to pre-fill blank fields from")

	qrCmd.Flags().Bool("persist", false, "upload the code and store its address on the row")
	qrCmd.Flags().String("out", "", "write the PNG to this file instead of printing a data URL")

	extractCmd.Flags().String("text", "", "raw text to extract from")
}

func sourceFromPath(path string) (extract.Source, error) {
	f, err := media.FileFromPath(path)
	if err != nil {
		return extract.Source{}, err
	}
	return extract.Source{Filename: f.Name, ContentType: f.ContentType, Data: f.Data}, nil
}

func printEntities(cmd *cobra.Command, list []store.Entity) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tNAME\tSTATUS\tCREATED\tCODE")
	for _, e := range list {
		c := e.Common()
		code := "-"
		if c.QRCode != "" {
			code = "yes"
		}
		status := stats.Label(e)
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.Kind(), c.ID, c.Name, status, c.CreatedAt.Format("2006-01-02 15:04"), code)
	}
	return w.Flush()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
