package transport

import "github.com/quillhaven/agentcore/api"

// ResolveName computes the platform-native endpoint address for name,
// incorporating the calling user's identity when userSpecific is true. An
// empty name is always rejected, per §6.
func ResolveName(name string, userSpecific bool) (string, error) {
	if name == "" {
		return "", api.New(api.KindInvalidChannelName, "endpoint name must not be empty")
	}
	return resolveNativeName(name, userSpecific)
}
