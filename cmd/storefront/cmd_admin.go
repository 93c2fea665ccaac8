package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ayyooya/internal/application/usecase"
	"ayyooya/internal/domain/common"
	"ayyooya/internal/domain/media"
	orderdom "ayyooya/internal/domain/order"
	productdom "ayyooya/internal/domain/product"
	sessiondom "ayyooya/internal/domain/session"
)

var errRolesUnavailable = errors.New("role management needs the Firebase Admin SDK")

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Order and product administration",
	}
	cmd.AddCommand(
		newAdminOrdersCmd(a),
		newAdminActionCmd(a, "confirm", "Mark the order's products sold and complete it",
			func(ctx context.Context, c adminDeps, id string) (orderdom.Order, error) {
				return c.Board.Confirm(ctx, id)
			}),
		newAdminActionCmd(a, "cancel", "Cancel a pending order",
			func(ctx context.Context, c adminDeps, id string) (orderdom.Order, error) {
				return c.Board.Cancel(ctx, id)
			}),
		newAdminActionCmd(a, "reconcile", "Re-mark a completed order's products sold",
			func(ctx context.Context, c adminDeps, id string) (orderdom.Order, error) {
				return c.Workflow.ReconcileSold(ctx, id)
			}),
		newAdminTrackCmd(a),
		newAdminDeleteCmd(a),
		newAdminProductAddCmd(a),
		newAdminProductDeleteCmd(a),
		newAdminSetRoleCmd(a),
	)
	return cmd
}

type adminDeps struct {
	Board    *usecase.AdminOrders
	Workflow *usecase.OrderWorkflow
}

func newAdminOrdersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List every order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := c.Board.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tCUSTOMER\tPHONE\tSTATUS\tTOTAL\tTRACKING")
			for _, e := range entries {
				o := e.Order()
				tn := "-"
				if o.TrackingNumber != nil {
					tn = *o.TrackingNumber
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.CustomerName, o.Phone, e.Effective(), o.TotalPrice, tn)
			}
			return tw.Flush()
		},
	}
}

func newAdminActionCmd(
	a *app,
	use, short string,
	fn func(ctx context.Context, c adminDeps, id string) (orderdom.Order, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <order-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			deps := adminDeps{Board: c.Board, Workflow: c.Workflow}
			var o orderdom.Order
			err = c.Guard.Do(cmd.Context(), "order:"+args[0], func(ctx context.Context) error {
				o, err = fn(ctx, deps, args[0])
				return err
			})
			var pf *usecase.PartialFailure
			if errors.As(err, &pf) {
				fmt.Fprintf(a.out, "order %s is %s; not marked sold: %v\n", o.ID, o.Status, pf.ProductIDs)
				fmt.Fprintf(a.out, "run: storefront admin reconcile %s\n", o.ID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "order %s is %s\n", o.ID, o.Status)
			return nil
		},
	}
}

func newAdminTrackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "track <order-id> <tracking-number>",
		Short: "Attach a tracking number to a completed order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			var o orderdom.Order
			err = c.Guard.Do(cmd.Context(), "order:"+args[0], func(ctx context.Context) error {
				o, err = c.Board.AttachTracking(ctx, args[0], args[1])
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "order %s tracking %s\n", o.ID, *o.TrackingNumber)
			return nil
		},
	}
}

func newAdminDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <order-id>",
		Short: "Delete an order permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			if !yes {
				yes = readLine(cmd, fmt.Sprintf("Delete order %s? This cannot be undone [y/N]: ", args[0])) == "y"
			}
			if err := c.Board.Delete(cmd.Context(), args[0], yes); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "order %s deleted\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newAdminProductAddCmd(a *app) *cobra.Command {
	var d productdom.Draft
	var images []string
	cmd := &cobra.Command{
		Use:   "product-add",
		Short: "Upload images and create a product",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			ups := make([]media.Upload, 0, len(images))
			for _, path := range images {
				up, closeFn, err := openUpload(path)
				if err != nil {
					return common.E(common.CodeValidation, "product.create", err)
				}
				defer closeFn()
				ups = append(ups, up)
			}
			var p productdom.Product
			err = c.Guard.Do(cmd.Context(), "product.create", func(ctx context.Context) error {
				p, err = c.Catalog.Create(ctx, d, ups)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "product %s created with %d image(s)\n", p.ID, len(p.Images))
			return nil
		},
	}
	cmd.Flags().StringVar(&d.Name, "name", "", "product name")
	cmd.Flags().IntVar(&d.Price, "price", 0, "price")
	cmd.Flags().StringVar(&d.Size, "size", "", "size")
	cmd.Flags().StringVar(&d.Category, "category", "", "category")
	cmd.Flags().StringVar(&d.Description, "description", "", "description")
	cmd.Flags().StringSliceVar(&images, "image", nil, "image file (repeatable)")
	return cmd
}

func newAdminProductDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "product-delete <product-id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			if !yes {
				yes = readLine(cmd, fmt.Sprintf("Delete product %s? [y/N]: ", args[0])) == "y"
			}
			return c.Catalog.Delete(cmd.Context(), args[0], yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newAdminSetRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <uid> <user|admin>",
		Short: "Grant or remove the admin role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			if c.Roles == nil {
				return common.E(common.CodeValidation, "admin.set_role", errRolesUnavailable)
			}
			if !c.Sessions.Current().IsAdmin() {
				return common.E(common.CodeForbidden, "admin.set_role", sessiondom.ErrNotAdmin)
			}
			role := sessiondom.ParseRole(args[1])
			if err := c.Roles.SetRole(cmd.Context(), args[0], role); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s is now %s; the change applies at the next token refresh\n", args[0], role)
			return nil
		},
	}
}
