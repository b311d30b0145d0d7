// Command mamachefctl is a terminal client for the Mama-Chef server.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/mmynk/mamachef/internal/service"
)

var (
	apiFlag     string
	tokenFlag   string
	timeoutFlag time.Duration
	rootCmd     = &cobra.Command{
		Use:          "mamachefctl",
		Short:        "CLI client for the Mama-Chef chat and tracker API",
		SilenceUsage: true,
	}
)

func newCommandClient(cmd *cobra.Command) *client {
	return newClient(apiFlag, tokenFlag, timeoutFlag, cmd.OutOrStdout())
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", envOr("MAMACHEF_API", "http://localhost:8080"), "Server base URL")
	rootCmd.PersistentFlags().StringVarP(&tokenFlag, "token", "t", os.Getenv("MAMACHEF_TOKEN"), "Session token from `session`")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 90*time.Second, "Request timeout")

	rootCmd.AddCommand(
		sessionCmd(),
		chatCmd(),
		quickCmd(),
		historyCmd(),
		profileCmd(),
		subscribeCmd(),
		analyzeCmd(),
		editCmd(),
		animateCmd(),
		batchCmd(),
		portionCmd(),
		includeCmd(),
		saveCmd(),
		mealsCmd(),
		summaryCmd(),
		proxyCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Start a session and print its token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newCommandClient(cmd).call(service.ChatServiceStartSessionProcedure, service.StartSessionRequest{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "export MAMACHEF_TOKEN=%s\n", gjson.GetBytes(raw, "token").String())
			return nil
		},
	}
}

func chatCmd() *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "chat [TEXT]",
		Short: "Send a message, optionally with a photo",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := service.SendMessageRequest{}
			if len(args) == 1 {
				req.Text = args[0]
			}
			if image != "" {
				url, err := imageDataURL(image)
				if err != nil {
					return err
				}
				req.Image = url
			}
			if req.Text == "" && req.Image == "" {
				return fmt.Errorf("TEXT or --image required")
			}
			_, err := newCommandClient(cmd).call(service.ChatServiceSendMessageProcedure, req)
			return err
		},
	}
	cmd.Flags().StringVarP(&image, "image", "i", "", "Path to a photo to attach")
	return cmd
}

func quickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quick ACTION",
		Short: "Run a quick action (scan_fridge, tell_story)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newCommandClient(cmd).call(service.ChatServiceQuickActionProcedure, service.QuickActionRequest{Action: args[0]})
			return err
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newCommandClient(cmd).call(service.ChatServiceGetConversationProcedure, service.GetConversationRequest{})
			return err
		},
	}
}

func profileCmd() *cobra.Command {
	var (
		age  string
		sick bool
		tier string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the child profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := service.UpdateProfileRequest{}
			if cmd.Flags().Changed("age") {
				req.AgeBracket = &age
			}
			if cmd.Flags().Changed("sick") {
				req.IsSick = &sick
			}
			if cmd.Flags().Changed("subscription") {
				req.Subscription = &tier
			}
			_, err := newCommandClient(cmd).call(service.ChatServiceUpdateProfileProcedure, req)
			return err
		},
	}
	cmd.Flags().StringVar(&age, "age", "", "Age bracket (0-1, 1-2, 2-3, 3-5, 5-7, 7-10)")
	cmd.Flags().BoolVar(&sick, "sick", false, "Child is sick")
	cmd.Flags().StringVar(&tier, "subscription", "", "Subscription tier (trial, active, expired)")
	return cmd
}

func subscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe",
		Short: "Activate the subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newCommandClient(cmd).call(service.ChatServiceSubscribeProcedure, service.SubscribeRequest{})
			return err
		},
	}
}

func analyzeCmd() *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Recognize the food on a photo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := imageDataURL(image)
			if err != nil {
				return err
			}
			_, err = newCommandClient(cmd).call(service.TrackerServiceAnalyzeImageProcedure, service.AnalyzeImageRequest{Image: url})
			return err
		},
	}
	cmd.Flags().StringVarP(&image, "image", "i", "", "Path to the meal photo (required)")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func editCmd() *cobra.Command {
	return mediaCmd("edit [PROMPT]", "Edit a photo with the image model",
		service.ChatServiceEditImageProcedure, "reply.image")
}

func animateCmd() *cobra.Command {
	return mediaCmd("animate [PROMPT]", "Turn a photo into a short video",
		service.ChatServiceAnimatePhotoProcedure, "reply.video")
}

func mediaCmd(use, short, procedure, path string) *cobra.Command {
	var image, out string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := imageDataURL(image)
			if err != nil {
				return err
			}
			req := service.MediaRequest{Image: url}
			if len(args) == 1 {
				req.Prompt = args[0]
			}
			return newCommandClient(cmd).callMedia(procedure, req, path, out)
		},
	}
	cmd.Flags().StringVarP(&image, "image", "i", "", "Path to the source photo (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the returned media to this file")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Print the current recognition batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newCommandClient(cmd).call(service.TrackerServiceGetBatchProcedure, service.GetBatchRequest{})
			return err
		},
	}
}

func portionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portion ITEM_ID GRAMS",
		Short: "Correct the portion of a recognized item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			grams, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid grams %q: %w", args[1], err)
			}
			_, err = newCommandClient(cmd).call(service.TrackerServiceSetPortionProcedure, service.SetPortionRequest{ItemID: args[0], Grams: grams})
			return err
		},
	}
}

func includeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "include ITEM_ID true|false",
		Short: "Include or exclude a recognized item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			included, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid flag %q: %w", args[1], err)
			}
			_, err = newCommandClient(cmd).call(service.TrackerServiceSetIncludedProcedure, service.SetIncludedRequest{ItemID: args[0], Included: included})
			return err
		},
	}
}

func saveCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the included items as a meal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newCommandClient(cmd).call(service.TrackerServiceSaveMealProcedure, service.SaveMealRequest{ConfirmLowConfidence: confirm})
			return err
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm low-confidence items")
	return cmd
}

func mealsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meals",
		Short: "Manage saved meals",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved meals, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newCommandClient(cmd).call(service.TrackerServiceListMealsProcedure, service.ListMealsRequest{Limit: limit})
			return err
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of meals")

	del := &cobra.Command{
		Use:   "delete MEAL_ID",
		Short: "Delete a saved meal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newCommandClient(cmd).call(service.TrackerServiceDeleteMealProcedure, service.DeleteMealRequest{MealID: args[0]})
			return err
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}

func summaryCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print daily totals and progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newCommandClient(cmd).call(service.TrackerServiceGetDailySummaryProcedure, service.GetDailySummaryRequest{Date: date})
			return err
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Day as YYYY-MM-DD (default today)")
	return cmd
}

func proxyCmd() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "proxy PROMPT",
		Short: "Send a raw prompt through /api/gemini",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{"prompt": args[0]}
			if model != "" {
				body["model"] = model
			}
			_, err := newCommandClient(cmd).call("/api/gemini", body)
			return err
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name override")
	return cmd
}
