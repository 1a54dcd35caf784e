package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/tryon/internal/jewelry"
	"github.com/ayusman/tryon/internal/store"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the jewelry catalog",
}

var catalogAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a jewelry piece",
	Long: `Add a jewelry piece to the catalog. The image may be an http(s) URL, an
absolute path, or a path relative to the media directory such as /media/ring.png.`,
	Example: `  tryon catalog add --name "Gold hoop" --category earring --image /media/hoop.png`,
	RunE:    runCatalogAdd,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE:  runCatalogList,
}

var catalogRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a jewelry piece",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogRemove,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogAddCmd, catalogListCmd, catalogRemoveCmd)

	catalogAddCmd.Flags().String("name", "", "Display name")
	catalogAddCmd.Flags().String("category", "", "Earring, Necklace (or Pendant), Ring or Bracelet")
	catalogAddCmd.Flags().String("image", "", "Image location")
	catalogAddCmd.MarkFlagRequired("name")
	catalogAddCmd.MarkFlagRequired("category")
	catalogAddCmd.MarkFlagRequired("image")

	catalogListCmd.Flags().String("category", "", "Only list this category")
}

func runCatalogAdd(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	name, _ := cmd.Flags().GetString("name")
	category, _ := cmd.Flags().GetString("category")
	image, _ := cmd.Flags().GetString("image")

	piece := &store.Jewelry{
		Name:     name,
		Category: jewelry.Category(category),
		ImageURL: image,
	}
	if err := st.Jewelry().Create(piece); err != nil {
		return fmt.Errorf("failed to add jewelry: %w", err)
	}

	fmt.Printf("Added %s (%s) with id %s\n", piece.Name, piece.Category, piece.ID)
	return nil
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	category, _ := cmd.Flags().GetString("category")
	items, err := st.Jewelry().List(jewelry.Category(category))
	if err != nil {
		return fmt.Errorf("failed to list jewelry: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No jewelry in the catalog")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tIMAGE")
	for _, j := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", j.ID, j.Name, j.Category, j.ImageURL)
	}
	return w.Flush()
}

func runCatalogRemove(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Jewelry().Delete(args[0]); err != nil {
		return fmt.Errorf("failed to remove %s: %w", args[0], err)
	}

	fmt.Printf("Removed %s\n", args[0])
	return nil
}
