package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ayyooya/internal/application/usecase"
	cartdom "ayyooya/internal/domain/cart"
	"ayyooya/internal/domain/common"
	"ayyooya/internal/domain/media"
	orderdom "ayyooya/internal/domain/order"
	productdom "ayyooya/internal/domain/product"
)

func newCartCmd(a *app) *cobra.Command {
	show := func(cmd *cobra.Command, _ []string) error {
		c, err := a.containerFor(cmd.Context())
		if err != nil {
			return err
		}
		printCart(a, c.Cart.Snapshot())
		return nil
	}
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or edit the cart",
		RunE:  show,
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the cart",
		RunE:  show,
	}

	var size string
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			p, err := c.Catalog.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p.IsSold {
				return common.E(common.CodeConflict, "cart.add", fmt.Errorf("%s is sold", p.Name))
			}
			if c.Cart.Contains(p.ID) {
				return common.E(common.CodeConflict, "cart.add", fmt.Errorf("%s is already in the cart", p.Name))
			}
			if size == "" {
				size = p.Size
			}
			it, err := cartdom.NewItem(p.ID, p.Name, p.Price, cartdom.ImageList(p.Images...), size)
			if err != nil {
				return common.E(common.CodeValidation, "cart.add", err)
			}
			if err := c.Cart.AddItem(cmd.Context(), it); err != nil {
				return err
			}
			printCart(a, c.Cart.Snapshot())
			return nil
		},
	}
	add.Flags().StringVar(&size, "size", "", "size (defaults to the product's)")

	var rmSize string
	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Cart.RemoveItem(cmd.Context(), args[0], rmSize); err != nil {
				return err
			}
			printCart(a, c.Cart.Snapshot())
			return nil
		},
	}
	remove.Flags().StringVar(&rmSize, "size", "", "size of the line")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			return c.Cart.Clear(cmd.Context())
		},
	}

	cmd.AddCommand(list, add, remove, clearCmd)
	return cmd
}

func newProductsCmd(a *app) *cobra.Command {
	var f productdom.Filter
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			xs, err := c.Catalog.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSIZE\tCATEGORY\tPRICE\tSOLD")
			for _, p := range xs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n", p.ID, p.Name, p.Size, p.Category, p.Price, p.IsSold)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&f.Category, "category", "", "filter by category")
	cmd.Flags().StringVar(&f.Search, "search", "", "match the name")
	cmd.Flags().BoolVar(&f.IncludeSold, "all", false, "include sold products")
	return cmd
}

func newCheckoutCmd(a *app) *cobra.Command {
	var form usecase.CheckoutForm
	var slipPath string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart with a payment slip",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			if slipPath != "" {
				up, closeFn, err := openUpload(slipPath)
				if err != nil {
					return common.E(common.CodeValidation, "checkout.submit", err)
				}
				defer closeFn()
				form.Slip = &up
			}
			var o orderdom.Order
			err = c.Guard.Do(cmd.Context(), "checkout", func(ctx context.Context) error {
				o, err = c.Checkout.Submit(ctx, form)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "order %s placed: %d item(s), total %d, status %s\n", o.ID, len(o.Items), o.TotalPrice, o.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "recipient name")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&form.Address, "address", "", "shipping address")
	cmd.Flags().StringVar(&slipPath, "slip", "", "payment slip image")
	return cmd
}

func newOrdersCmd(a *app) *cobra.Command {
	var markViewed bool
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			xs, err := c.Query.Mine(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Tracker.Refresh(cmd.Context()); err != nil {
				return err
			}
			if c.Tracker.HasUnseenTracking() {
				fmt.Fprintln(a.out, "* new tracking numbers")
			}
			printOrders(a, xs)
			if markViewed {
				return c.Tracker.MarkViewed(cmd.Context())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&markViewed, "mark-viewed", false, "mark tracking numbers as seen")
	return cmd
}

// ---- helpers ----

func printCart(a *app, s usecase.CartSnapshot) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tPRICE")
	for _, it := range s.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", it.ProductID, it.Name, it.Size, it.UnitPrice)
	}
	fmt.Fprintf(tw, "\t%d item(s)\t\t%d\n", s.Count, s.Total)
	_ = tw.Flush()
}

func printOrders(a *app, xs []orderdom.Order) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tTOTAL\tTRACKING")
	for _, o := range xs {
		tn := "-"
		if o.TrackingNumber != nil {
			tn = *o.TrackingNumber
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.Status, o.TotalPrice, tn)
	}
	_ = tw.Flush()
}

func openUpload(path string) (media.Upload, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return media.Upload{}, nil, err
	}
	name := filepath.Base(path)
	return media.Upload{
		FileName:    name,
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(name))),
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
