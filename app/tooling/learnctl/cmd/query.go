package cmd

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile [address]",
	Short: "Print the on-chain profile of an address, or of the account key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  profileRun,
}

var contentCmd = &cobra.Command{
	Use:   "content [id]",
	Short: "Print all content, or a single item with its quiz",
	Args:  cobra.MaximumNArgs(1),
	RunE:  contentRun,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(contentCmd)
}

func profileRun(cmd *cobra.Command, args []string) error {
	var addr common.Address
	switch len(args) {
	case 1:
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid address %q", args[0])
		}
		addr = common.HexToAddress(args[0])

	default:
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}
		addr = crypto.PubkeyToAddress(privateKey.PublicKey)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := open(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	out := struct {
		Address          string   `json:"address"`
		Profile          any      `json:"profile"`
		UnredeemedPoints string   `json:"unredeemedPoints"`
		BadgeIDs         []uint64 `json:"badgeIds"`
		CompletedContent []uint64 `json:"completedContent"`
		IsTrustee        bool     `json:"isTrustee"`
	}{
		Address:          addr.Hex(),
		Profile:          s.state.GetUserProfile(ctx, addr),
		UnredeemedPoints: s.state.GetUnredeemedPoints(ctx, addr),
		BadgeIDs:         s.state.GetUserBadgeIDs(ctx, addr),
		CompletedContent: s.state.GetUserCompletedContent(ctx, addr),
		IsTrustee:        s.state.GetIsTrustee(ctx, addr),
	}

	return printJSON(out)
}

func contentRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := open(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	if len(args) == 0 {
		return printJSON(s.state.LoadAllContentIDs(ctx))
	}

	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid content id: %w", err)
	}

	c := s.state.GetContent(ctx, id)
	if c == nil {
		return fmt.Errorf("content %d could not be read", id)
	}

	return printJSON(c)
}
