package generation

import "context"

// EchoModel returns the attended input ids as the only beam. It needs no
// weights and is meant for local development and smoke tests.
type EchoModel struct{}

func (EchoModel) Generate(ctx context.Context, enc *Encoding, opts Options) ([][]int, error) {
	ids := enc.Attended()
	if opts.MaxLength > 0 && len(ids) > opts.MaxLength {
		ids = ids[:opts.MaxLength]
	}
	return [][]int{ids}, nil
}
