package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/pipeline"

	"github.com/spf13/cobra"
)

var commitCmd = &cobra.Command{
	Use:   "commit <uid>...",
	Short: "Commit pending runs to the ledger",
	Long: "Re-analyze the registered folders and commit the pending runs with the\n" +
		"given UIDs. Each run is stored and its UID added to the ledger in one step.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCommit,
}

func init() {
	rootCmd.AddCommand(commitCmd)
}

func runCommit(_ *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	folders, err := s.Folders()
	if err != nil {
		return err
	}
	res, err := analyze(s, folders)
	if err != nil {
		return err
	}

	picked, committed, missing, err := matchUIDs(args, res.Pending(), s)
	if err != nil {
		return err
	}
	for _, uid := range committed {
		fmt.Printf("  %s already committed\n", uid)
	}
	if len(picked) > 0 {
		fmt.Println()
		if err := commitRecords(s, picked); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("no pending run with uid %s", strings.Join(missing, ", "))
	}
	return nil
}

// matchUIDs sorts the requested UIDs into pending runs to commit, UIDs the
// ledger already holds and UIDs found nowhere. A ledger failure aborts
// before anything is committed.
func matchUIDs(uids []string, pending []model.RunRecord, ledger pipeline.Ledger) (picked []model.RunRecord, committed, missing []string, err error) {
	byUID := make(map[string]model.RunRecord, len(pending))
	for _, r := range pending {
		byUID[r.UID] = r
	}
	for _, uid := range uids {
		uid = strings.ToLower(strings.TrimSpace(uid))
		if r, ok := byUID[uid]; ok {
			picked = append(picked, r)
			delete(byUID, uid)
			continue
		}
		done, err := ledger.Contains(uid)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("checking %s: %w", uid, err)
		}
		if done {
			committed = append(committed, uid)
		} else {
			missing = append(missing, uid)
		}
	}
	return picked, committed, missing, nil
}
