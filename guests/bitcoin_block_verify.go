package guests

import (
	"github.com/shaorongqiang/bitcoin-block-verify/guestio"
	"github.com/shaorongqiang/bitcoin-block-verify/spv"
	"github.com/shaorongqiang/bitcoin-block-verify/zkvm"
)

// guestProgram pairs an entrypoint with the policy string baked into its
// manifest.
type guestProgram struct {
	policyName string
	main       zkvm.GuestFunc
}

// The two Bitcoin header-chain guests differ only in validation policy.
// Binding the policy into the program identity, rather than into the input,
// lets a receipt verifier tell a PoW-checked run from a linkage-only run by
// image id alone.
var (
	mainnetGuest = guestProgram{policyName: "enforce-pow", main: verifyHeaderChain(spv.EnforcePoW)}
	nopowGuest   = guestProgram{policyName: "linkage-only", main: verifyHeaderChain(spv.LinkageOnly)}
)

func verifyHeaderChain(policy spv.Policy) zkvm.GuestFunc {
	return func(env *zkvm.Env) error {
		height, headers, err := guestio.Unpack(env.ReadInput())
		if err != nil {
			return err
		}
		last, err := spv.ValidateHeaderChain(headers, policy)
		if err != nil {
			return err
		}
		return env.Commit(EncodeJournal(Output{Height: height, BlockHash: last}))
	}
}
