package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Crypto metrics for message envelopes, key lifecycle and backups. Labels never
// carry user IDs.
var (
	EnvelopeEncryptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "e2ee_envelope_encrypt_total",
		Help: "Total number of message envelopes built",
	}, []string{"status"})

	EnvelopeDecryptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "e2ee_envelope_decrypt_total",
		Help: "Total number of message envelopes opened",
	}, []string{"status"}) // "ok", "not_a_participant", "failed", "malformed"

	EnvelopeRecipients = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "e2ee_envelope_recipients",
		Help:    "Number of wrapped keys per envelope",
		Buckets: []float64{1, 2, 3, 5, 10, 25, 50, 100, 250},
	})

	DirectoryLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "e2ee_directory_lookup_duration_seconds",
		Help:    "Time taken to resolve all participant public keys for one message",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	LifecycleDecisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "e2ee_lifecycle_decision_total",
		Help: "Key lifecycle decisions taken at login",
	}, []string{"action"})

	KeyPairGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "e2ee_keypair_generated_total",
		Help: "Total number of RSA key pairs generated",
	}, []string{"reason"}) // "onboarding", "session"

	BackupOperationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "e2ee_backup_operation_total",
		Help: "Total number of backup encrypt/decrypt operations",
	}, []string{"operation", "kdf", "status"})
)

// RecordEnvelopeEncrypt records one EncryptForParticipants outcome
func RecordEnvelopeEncrypt(status string, recipients int) {
	EnvelopeEncryptTotal.WithLabelValues(status).Inc()
	if recipients > 0 {
		EnvelopeRecipients.Observe(float64(recipients))
	}
}

// RecordEnvelopeDecrypt records one DecryptForSelf outcome
func RecordEnvelopeDecrypt(status string) {
	EnvelopeDecryptTotal.WithLabelValues(status).Inc()
}

// RecordDirectoryLookup records the fan-out latency in seconds
func RecordDirectoryLookup(seconds float64) {
	DirectoryLookupDuration.Observe(seconds)
}

// RecordLifecycleDecision records the action chosen by the lifecycle manager
func RecordLifecycleDecision(action string) {
	LifecycleDecisionTotal.WithLabelValues(action).Inc()
}

// RecordKeyPairGenerated records a fresh RSA key pair
func RecordKeyPairGenerated(reason string) {
	KeyPairGeneratedTotal.WithLabelValues(reason).Inc()
}

// RecordBackupOperation records a backup encrypt or decrypt
func RecordBackupOperation(operation, kdf, status string) {
	BackupOperationTotal.WithLabelValues(operation, kdf, status).Inc()
}
