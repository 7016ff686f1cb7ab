package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/sitecheck/internal/core"
)

type completionFunc func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective)

// completeChecklistIDs completes the first positional argument with stored
// checklist IDs, described by their names.
func completeChecklistIDs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Manager == nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	lists, err := Manager.List(core.ChecklistFilter{})
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var ids []string
	for _, cl := range lists {
		if strings.HasPrefix(cl.ID, toComplete) {
			ids = append(ids, cl.ID+"\t"+cl.Name)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completeChecklistThenItem completes a checklist ID, then the IDs of that
// checklist's items.
func completeChecklistThenItem(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return completeChecklistIDs(cmd, args, toComplete)
	case 1:
		if Manager == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		cl, err := Manager.Get(args[0])
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var ids []string
		for _, item := range cl.Items {
			if strings.HasPrefix(item.ID, toComplete) {
				ids = append(ids, item.ID+"\t"+string(item.Status.Normalize())+": "+item.Title)
			}
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func completeTemplateIDs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Catalog == nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var ids []string
	for _, t := range Catalog.ListTemplates() {
		if strings.HasPrefix(t.ID, toComplete) {
			ids = append(ids, t.ID+"\t"+t.Name)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func completeTemplateCategories(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	if Catalog == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	seen := make(map[string]bool)
	var out []string
	for _, t := range Catalog.ListTemplates() {
		if t.Category != "" && !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	argCompletions := map[*cobra.Command]completionFunc{
		checklistShowCmd:       completeChecklistIDs,
		checklistDeleteCmd:     completeChecklistIDs,
		checklistAddItemCmd:    completeChecklistIDs,
		checklistRemoveItemCmd: completeChecklistThenItem,
		checklistMoveItemCmd:   completeChecklistThenItem,
		progressCmd:            completeChecklistIDs,
		validateCmd:            completeChecklistIDs,
		templateShowCmd:        completeTemplateIDs,
	}
	for cmd, fn := range argCompletions {
		cmd.ValidArgsFunction = fn
	}
}
