package config

type WorkerKeyStruct struct {
	ArchiveResultsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ArchiveResultsQueue: "archive_results_queue",
}
