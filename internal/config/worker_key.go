package config

type WorkerKeyStruct struct {
	PersistAnswersQueue    string
	PersistViolationsQueue string
	RegradeQueue           string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:    "persist_answers_queue",
	PersistViolationsQueue: "persist_violations_queue",
	RegradeQueue:           "regrade_queue",
}
