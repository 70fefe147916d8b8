package publish

import (
	"redpost/pkg/logging"
)

// Logical UI targets. Selector maintenance happens in the table below, not
// at call sites.
const (
	TargetFileInput       = "file-input"
	TargetImageModeTab    = "image-mode-tab"
	TargetVideoModeTab    = "video-mode-tab"
	TargetTitleField      = "title-field"
	TargetBodyEditor      = "body-editor"
	TargetPublishButton   = "publish-button"
	TargetUploadSuccess   = "upload-success"
	TargetUploadError     = "upload-error"
	TargetVideoProcessing = "video-processing"
	TargetVideoComplete   = "video-complete"
	TargetMentionNode     = "mention-node"
)

// LocatorSpec is the ordered candidate list for one logical target. When
// AttachedOnly is set, candidates are probed for DOM attachment rather than
// visibility; file inputs are routinely hidden behind styled dropzones.
type LocatorSpec struct {
	Target       string
	Selectors    []string
	AttachedOnly bool
}

// locatorTable is the single source of selector truth. The platform ships
// no stable API, so these need ongoing maintenance against its live markup.
var locatorTable = map[string]LocatorSpec{
	TargetFileInput: {
		Target:       TargetFileInput,
		AttachedOnly: true,
		Selectors: []string{
			".upload-input",
			"input[type='file']",
			"[class*='upload'][type='file']",
		},
	},
	TargetImageModeTab: {
		Target:    TargetImageModeTab,
		Selectors: []string{`.creator-tab:has-text("上传图文")`},
	},
	TargetVideoModeTab: {
		Target:    TargetVideoModeTab,
		Selectors: []string{`.creator-tab:has-text("上传视频")`},
	},
	TargetTitleField: {
		Target: TargetTitleField,
		Selectors: []string{
			".d-text",
			"[placeholder*='标题']",
		},
	},
	TargetBodyEditor: {
		Target:    TargetBodyEditor,
		Selectors: []string{".ql-editor"},
	},
	TargetPublishButton: {
		Target: TargetPublishButton,
		Selectors: []string{
			".publishBtn",
			"[class*='publish']",
			`button:has-text("发布")`,
		},
	},
	TargetUploadSuccess: {
		Target:    TargetUploadSuccess,
		Selectors: []string{".upload-success"},
	},
	TargetUploadError: {
		Target:    TargetUploadError,
		Selectors: []string{".upload-error"},
	},
	TargetVideoProcessing: {
		Target:    TargetVideoProcessing,
		Selectors: []string{".video-processing"},
	},
	TargetVideoComplete: {
		Target:    TargetVideoComplete,
		Selectors: []string{".video-complete"},
	},
	TargetMentionNode: {
		Target: TargetMentionNode,
		Selectors: []string{
			"a.mention",
			"[data-topic]",
		},
	},
}

// Resolver probes the live page for the first candidate selector of a
// logical target that currently yields an element.
type Resolver struct {
	driver Driver
	logger *logging.Logger
}

// NewResolver creates a resolver over the given driver.
func NewResolver(driver Driver, logger *logging.Logger) *Resolver {
	return &Resolver{driver: driver, logger: logger}
}

// Resolve returns the first matching candidate selector for the target, or
// a locator error naming the target so its selector list can be repaired.
func (r *Resolver) Resolve(target string) (string, error) {
	spec, ok := locatorTable[target]
	if !ok {
		return "", NewError(KindLocator, "unknown locator target %q", target)
	}

	for _, sel := range spec.Selectors {
		var (
			found bool
			err   error
		)
		if spec.AttachedOnly {
			found, err = r.driver.QueryAttached(sel)
		} else {
			found, err = r.driver.QueryVisible(sel)
		}
		if err != nil {
			r.logger.Debugf("Probe for %s candidate %q failed: %v", target, sel, err)
			continue
		}
		if found {
			r.logger.Debugf("Resolved %s to %q", target, sel)
			return sel, nil
		}
	}

	return "", NewError(KindLocator, "no candidate selector matched target %q", target)
}

// Probe reports whether the target currently resolves, without treating
// absence as an error. Used by completion polling, where markers come and
// go.
func (r *Resolver) Probe(target string) bool {
	_, err := r.Resolve(target)
	return err == nil
}
