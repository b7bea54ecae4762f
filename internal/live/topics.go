package live

// Topic names mirror the collection paths a write touches.

const TopicRuns = "runs"

func RunStagesTopic(runID string) string  { return "runs:" + runID + ":stages" }
func RunGuitarsTopic(runID string) string { return "runs:" + runID + ":guitars" }

func ClientGuitarsTopic(clientUID string) string  { return "clients:" + clientUID + ":guitars" }
func ClientInvoicesTopic(clientUID string) string { return "clients:" + clientUID + ":invoices" }

func GuitarNotesTopic(guitarID string) string { return "guitars:" + guitarID + ":notes" }

func NotificationsTopic(uid string) string { return "notifications:" + uid }
