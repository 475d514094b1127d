// Package view renders dashboard containers into patches the browser applies verbatim.
//
// Every render replaces a container's whole content; nothing is diffed.
package view

// Op is a browser-side DOM operation.
type Op string

const (
	OpReplace Op = "replace" // set inner HTML
	OpText    Op = "text"    // set text content
	OpShow    Op = "show"
	OpHide    Op = "hide"
	OpAppend  Op = "append"
	OpFade    Op = "fade" // start the fade-out transition
	OpRemove  Op = "remove"
)

// Element ids of the page containers.
const (
	ServerList      = "serverList"
	QueueList       = "queueList"
	EmptyQueue      = "emptyQueue"
	QueueCount      = "queueCount"
	PlayerArea      = "playerArea"
	PlayPauseButton = "playPauseButton"
	RadioStations   = "radioStations"
	OrdersList      = "ordersList"
	ToastContainer  = "toastContainer"
)

// Patch is one DOM operation on the element with id Target.
type Patch struct {
	Op     Op     `json:"op"`
	Target string `json:"target"`
	HTML   string `json:"html,omitempty"`
	Text   string `json:"text,omitempty"`
}

// ToastKind selects a toast's styling and title.
type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

func (k ToastKind) Title() string {
	switch k {
	case ToastSuccess:
		return "Success"
	case ToastError:
		return "Error"
	default:
		return "Info"
	}
}

// Toast is one transient notification.
type Toast struct {
	ID      string
	Kind    ToastKind
	Message string
}
