// Package imds probes the instance metadata service to discriminate Azure
// from Arc when configSettings does not specify cloudType (spec §6.6).
// Grounded on github.com/sethgrid/pester, which the teacher pulls in for
// resilient HTTP calls against the Kubernetes API server -- reused here for
// a resilient call against the IMDS endpoint instead.
package imds

import (
	"net/http"
	"time"

	"github.com/sethgrid/pester"

	"github.com/azure/patchcore/pkg/constants"
)

// DetectCloudType probes IMDS and returns Azure on a 200 response, or Arc
// if every attempt fails (spec §6.6).
func DetectCloudType() constants.CloudType {
	client := pester.New()
	client.MaxRetries = constants.IMDSMaxAttempts
	client.Backoff = pester.LinearBackoff
	client.Timeout = constants.IMDSTimeoutSeconds * time.Second

	req, err := http.NewRequest(http.MethodGet, constants.IMDSURL, nil)
	if err != nil {
		return constants.CloudArc
	}
	req.Header.Set("Metadata", "True")
	req.Header.Set("User-Agent", "ArcAgent")

	resp, err := client.Do(req)
	if err != nil {
		return constants.CloudArc
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return constants.CloudAzure
	}
	return constants.CloudArc
}
