package core

// Version is the scrapper release version, reported by the health endpoint
// and the Prometheus build-info metric.
const Version = "1.2.0"
