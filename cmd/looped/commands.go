package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/studcollab/looped/frontend/internal/feed"
	"github.com/studcollab/looped/frontend/internal/workflow"
	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
)

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "looped",
		Short:         "Buddy Beacon and events hub from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFolder, "config", "", "folder with public.yaml and private.yaml (defaults and environment when empty)")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "session token (defaults to $"+tokenEnv+")")
	root.PersistentFlags().StringVar(&opts.store, "store", "", "pending store driver: memory, sqlite or postgres")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	post := &cobra.Command{Use: "post", Short: "Manage team posts"}
	post.AddCommand(newPostCreateCmd(opts))
	event := &cobra.Command{Use: "event", Short: "Manage events"}
	event.AddCommand(newEventCreateCmd(opts))

	root.AddCommand(
		newFeedCmd(opts),
		newEventsCmd(opts),
		post,
		event,
		newApplyCmd(opts),
		newAcceptCmd(opts),
		newRejectCmd(opts),
		newDeleteCmd(opts),
		newSyncCmd(opts),
		newPendingCmd(opts),
		newPodsCmd(opts),
	)
	return root
}

type runFunc func(cmd *cobra.Command, a *app, args []string) error

// withApp opens the session before fn and closes the store after it.
func withApp(opts *options, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := opts.open(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if n := a.synced.Synced(); n > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "synced %d pending item(s)\n", n)
		}
		return fn(cmd, a, args)
	}
}

func newFeedCmd(opts *options) *cobra.Command {
	var tab, query string
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the Buddy Beacon feed",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(feed.Tabs(), tab) {
				return fmt.Errorf("unknown tab %q: must be one of %s", tab, strings.Join(feed.Tabs(), ", "))
			}
			return nil
		},
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			res, err := a.session.View.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, msg := range res.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "!", msg)
			}
			printEntries(out, feed.Project(res, feed.Filter{Tab: tab, Query: query}))
			counts := res.Counts()
			fmt.Fprintf(out, "\nall: %d, my posts: %d, applied: %d\n", counts[feed.TabAll], counts[feed.TabMine], counts[feed.TabApplied])
			return nil
		}),
	}
	cmd.Flags().StringVar(&tab, "tab", feed.TabAll, "one of: "+strings.Join(feed.Tabs(), ", "))
	cmd.Flags().StringVar(&query, "q", "", "search title, description and skills")
	return cmd
}

func newEventsCmd(opts *options) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			s := a.session
			res, err := s.Loader.LoadEvents(cmd.Context(), s.Client, s.User, domain.CategoryFromFilter(category))
			if err != nil {
				return err
			}
			for _, msg := range res.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "!", msg)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tTITLE\t")
			for _, e := range res.Events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Event.Id, e.Event.Date, e.Event.Category, e.Event.Title, pendingMark(e.Pending))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&category, "category", "", "hackathons, fests, competitions, workshops or others")
	return cmd
}

func newPostCreateCmd(opts *options) *cobra.Command {
	var req api.CreateTeamPostRequest
	var skills, extra []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a team post (saved locally when the server is unreachable)",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			req.RequiredSkills = domain.NewSkills(skills...)
			req.ExtraSkills = domain.NewSkills(extra...)
			outcome, err := a.session.Workflow.CreateTeamPost(cmd.Context(), req)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.EventId, "event", "", "event id")
	cmd.Flags().StringVar(&req.Title, "title", "", "post title")
	cmd.Flags().StringVar(&req.Description, "description", "", "what the team is building")
	cmd.Flags().StringSliceVar(&skills, "skill", nil, "required skill (repeat flag)")
	cmd.Flags().StringSliceVar(&extra, "extra-skill", nil, "nice-to-have skill (repeat flag)")
	cmd.Flags().IntVar(&req.TeamSize, "team-size", 0, "team size including you")
	return cmd
}

func newEventCreateCmd(opts *options) *cobra.Command {
	var req api.CreateEventRequest
	var skills []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event (saved locally when the server is unreachable)",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			req.Category = domain.CategoryFromFilter(req.Category)
			req.RequiredSkills = domain.NewSkills(skills...)
			outcome, err := a.session.Workflow.CreateEvent(cmd.Context(), req)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "event title")
	cmd.Flags().StringVar(&req.Category, "category", "", "Hackathon, Fest, Competition, Workshop or Others")
	cmd.Flags().StringVar(&req.Date, "date", "", "date as YYYY-MM-DD")
	cmd.Flags().StringVar(&req.Time, "time", "", "start time as HH:MM")
	cmd.Flags().StringVar(&req.Description, "description", "", "event description")
	cmd.Flags().StringVar(&req.ExternalLink, "link", "", "registration link")
	cmd.Flags().StringSliceVar(&skills, "skill", nil, "relevant skill (repeat flag)")
	return cmd
}

func newApplyCmd(opts *options) *cobra.Command {
	var message string
	var skills []string
	cmd := &cobra.Command{
		Use:   "apply <postID>",
		Short: "Apply to a team post",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			application, err := a.session.Workflow.Apply(cmd.Context(), args[0], message, domain.NewSkills(skills...))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (application %s)\n", workflow.NoticeApplied, application.Id)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "why you fit the team (max 300 characters)")
	cmd.Flags().StringSliceVar(&skills, "skill", nil, "relevant skill (repeat flag)")
	return cmd
}

func newAcceptCmd(opts *options) *cobra.Command {
	var postId string
	cmd := &cobra.Command{
		Use:   "accept <applicationID>",
		Short: "Accept an applicant to your team",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.session.Workflow.Accept(cmd.Context(), args[0], postId); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), workflow.NoticeAccepted)
			return nil
		}),
	}
	cmd.Flags().StringVar(&postId, "post", "", "post the application belongs to")
	return cmd
}

func newRejectCmd(opts *options) *cobra.Command {
	var postId, reason, note string
	reasons := make([]string, 0, len(domain.RejectionReasons()))
	for _, r := range domain.RejectionReasons() {
		reasons = append(reasons, string(r))
	}
	cmd := &cobra.Command{
		Use:   "reject <applicationID>",
		Short: "Reject an applicant",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.session.Workflow.Reject(cmd.Context(), args[0], postId, reason, note); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), workflow.NoticeRejected)
			return nil
		}),
	}
	cmd.Flags().StringVar(&postId, "post", "", "post the application belongs to")
	cmd.Flags().StringVar(&reason, "reason", "", "one of: "+strings.Join(reasons, ", "))
	cmd.Flags().StringVar(&note, "note", "", "optional note for the applicant")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <postID>",
		Short: "Delete one of your posts; local-… ids are removed from the pending store",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			notice, err := a.session.Workflow.DeletePost(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), notice)
			return nil
		}),
	}
}

func newSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push pending items to the server",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			// the session start already ran a pass; a second one retries
			// whatever that pass left behind
			report, err := a.session.Sync(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tSYNCED\tFAILED\tREMAINING")
			for i, k := range report.Kinds {
				synced := k.Synced
				if i < len(a.synced.Kinds) {
					synced += a.synced.Kinds[i].Synced
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", k.Kind, synced, k.Failed, k.Remaining)
			}
			return tw.Flush()
		}),
	}
}

func newPendingCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List items waiting to be synced",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "LOCAL ID\tKIND\tCREATED\tATTEMPTS\tLAST ERROR")
			for _, kind := range domain.PendingKinds() {
				items, err := a.store.List(cmd.Context(), a.session.Scope, kind)
				if err != nil {
					return err
				}
				for _, it := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", it.LocalId, kind, it.CreatedAt.Format("2006-01-02 15:04"), it.Attempts, it.LastError)
				}
			}
			return tw.Flush()
		}),
	}
}

func newPodsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pods",
		Short: "List collab pods",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			pods, err := a.session.Client.Pods(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tMEMBERS\tSTATUS")
			for _, p := range pods {
				members := fmt.Sprint(len(p.MemberIds))
				if p.MaxCapacity > 0 {
					members += fmt.Sprintf("/%d", p.MaxCapacity)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Id, p.Name, members, p.Status)
			}
			return tw.Flush()
		}),
	}
}

func printEntries(w io.Writer, entries []feed.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATE\tLEFT\tACTION\t")
	for _, e := range entries {
		action := e.Button.Label
		if e.Button.Hidden {
			action = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0fh\t%s\t%s\n", e.Post.Id, e.Post.Title, e.State, e.HoursRemaining, action, pendingMark(e.Pending))
	}
	tw.Flush()
}

func printOutcome(w io.Writer, o workflow.Outcome) {
	r := o.Response()
	fmt.Fprintln(w, r.Notice)
	if r.Pending {
		fmt.Fprintf(w, "local id: %s\n", r.LocalId)
		return
	}
	fmt.Fprintf(w, "id: %s\n", r.Id)
}

func pendingMark(pending bool) string {
	if pending {
		return "(pending sync)"
	}
	return ""
}
