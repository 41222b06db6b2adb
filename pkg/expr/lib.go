package expr

import (
	"net"
	"net/url"
	"path"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/macropower/reap/pkg/torrent"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),

		cel.Variable("torrent", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("status", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("now", cel.IntType),

		cel.Constant("KiB", types.IntType, types.Int(torrent.KiB)),
		cel.Constant("MiB", types.IntType, types.Int(torrent.MiB)),
		cel.Constant("GiB", types.IntType, types.Int(torrent.GiB)),

		// `glob` reports whether the string matches a shell pattern.
		// Example: torrent.name.glob("*.S01E??.*").
		cel.Function("glob",
			cel.MemberOverload("string_glob_string", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(value, pattern ref.Val) ref.Val {
					valueStr, ok := value.(types.String).Value().(string)
					if !ok {
						return types.NewErr("glob: invalid string value")
					}

					patternStr, ok := pattern.(types.String).Value().(string)
					if !ok {
						return types.NewErr("glob: invalid pattern value")
					}

					match, err := path.Match(patternStr, valueStr)
					if err != nil {
						return types.NewErr("glob: %v", err)
					}

					return types.Bool(match)
				}),
			),
		),

		// `trackerHost` returns the host name of a tracker URL.
		// Example: trackerHost(torrent.tracker) == "tracker.example.org".
		cel.Function("trackerHost",
			cel.Overload("tracker_host", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(tracker ref.Val) ref.Val {
					trackerStr, ok := tracker.(types.String).Value().(string)
					if !ok {
						return types.NewErr("trackerHost: invalid string value")
					}

					return types.String(TrackerHost(trackerStr))
				}),
			),
		),
	}
}

// TrackerHost returns the host name of a tracker URL. Values without a scheme
// are treated as "host[:port][/path]".
func TrackerHost(tracker string) string {
	u, err := url.Parse(tracker)
	if err == nil && u.Host != "" {
		return u.Hostname()
	}

	host, _, _ := strings.Cut(tracker, "/")

	h, _, err := net.SplitHostPort(host)
	if err == nil {
		return h
	}

	return host
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}
