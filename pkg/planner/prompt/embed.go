package prompt

import _ "embed"

// defaultTemplates is the static template definition set shipped with the
// binary. It is parsed once by NewDefaultRenderer.
//
//go:embed templates.yaml
var defaultTemplates []byte
