/*
Copyright 2026 The Chainboot Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package manifest

import (
	"bytes"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

func utf16Encode(t *testing.T, s string) []byte {
	t.Helper()
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		t.Fatalf("utf16Encode: unexpected error: %v", err)
	}
	return out
}

const sampleManifest = `<?xml version="1.0"?>
<Bundle Id="{11111111-1111-1111-1111-111111111111}" Version="1.0.0.0" ProviderKey="example.bundle" DisplayName="Example" PerMachine="true">
  <UpgradeCode>{22222222-2222-2222-2222-222222222222}</UpgradeCode>
  <Variable Name="InstallFolder" Type="string" Value="C:\Example" Persisted="true"/>
  <Container Id="attached" Attached="true" AttachedIndex="1024" FilePath="attached.cab" Hash="da39a3ee5e6b4b0d3255bfef95601890afd80709" Size="100"/>
  <Payload Id="pay1" FilePath="example.msi" Packaging="embedded" Container="attached" Hash="da39a3ee5e6b4b0d3255bfef95601890afd80709" Size="100"/>
  <RollbackBoundary Id="bnd0" Vital="true"/>
  <Package Id="pkgA" Kind="msi" PerMachine="true" CacheId="pkgA-cache" CachePolicy="yes" ProductCode="{33333333-3333-3333-3333-333333333333}" Version="1.0.0.0" RollbackBoundaryForward="bnd0">
    <PayloadRef>pay1</PayloadRef>
    <Provides Key="example.provider" Version="1.0.0.0" DisplayName="Example"/>
  </Package>
  <Package Id="pkgB" Kind="msp" PatchCode="{44444444-4444-4444-4444-444444444444}" SlipstreamMsiPackageId="pkgA">
    <PayloadRef>pay1</PayloadRef>
  </Package>
</Bundle>`

func TestParseRoundTrip(t *testing.T) {
	r := bytes.NewReader(utf16Encode(t, sampleManifest))
	b, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse(...): unexpected error: %v", err)
	}

	if b.ID != "{11111111-1111-1111-1111-111111111111}" {
		t.Errorf("Bundle.ID = %q, want the Bundle@Id attribute", b.ID)
	}
	if !b.PerMachine {
		t.Errorf("Bundle.PerMachine = false, want true")
	}
	if len(b.Codes.Upgrade) != 1 {
		t.Fatalf("Bundle.Codes.Upgrade = %v, want one entry", b.Codes.Upgrade)
	}
	if len(b.Packages) != 2 {
		t.Fatalf("len(Bundle.Packages) = %d, want 2", len(b.Packages))
	}
	pkg := b.Packages[0]
	if pkg.Kind != PackageMSI || pkg.MSI == nil {
		t.Fatalf("Packages[0].Kind = %v, want PackageMSI with MSI set", pkg.Kind)
	}
	if pkg.MSI.ProductCode != "{33333333-3333-3333-3333-333333333333}" {
		t.Errorf("Packages[0].MSI.ProductCode = %q, unexpected", pkg.MSI.ProductCode)
	}
	if pkg.RollbackBoundaryForward != "bnd0" {
		t.Errorf("Packages[0].RollbackBoundaryForward = %q, want bnd0", pkg.RollbackBoundaryForward)
	}
	if len(pkg.DependencyProviders) != 1 || pkg.DependencyProviders[0].Key != "example.provider" {
		t.Fatalf("Packages[0].DependencyProviders = %v, unexpected", pkg.DependencyProviders)
	}

	msp := b.Packages[1]
	if msp.Kind != PackageMSP || msp.MSP == nil {
		t.Fatalf("Packages[1].Kind = %v, want PackageMSP with MSP set", msp.Kind)
	}
	if msp.MSP.SlipstreamMSIPackageID != "pkgA" {
		t.Errorf("Packages[1].MSP.SlipstreamMSIPackageID = %q, want pkgA", msp.MSP.SlipstreamMSIPackageID)
	}

	container, ok := b.Containers["attached"]
	if !ok {
		t.Fatalf("Containers[attached] missing")
	}
	if !container.Attached || container.AttachedIndex != 1024 {
		t.Errorf("Containers[attached] = %+v, want Attached=true AttachedIndex=1024", container)
	}

	payload, ok := b.Payloads["pay1"]
	if !ok {
		t.Fatalf("Payloads[pay1] missing")
	}
	if payload.Packaging != PackagingEmbedded || payload.ContainerID != "attached" {
		t.Errorf("Payloads[pay1] = %+v, want embedded packaging referencing attached container", payload)
	}

	boundary, ok := b.RollbackBounds["bnd0"]
	if !ok || !boundary.Vital {
		t.Fatalf("RollbackBounds[bnd0] = %+v, want a vital boundary", boundary)
	}
}

func TestParseRejectsBadVersion(t *testing.T) {
	bad := `<Bundle Id="x" Version="not-a-version"></Bundle>`
	_, err := Parse(bytes.NewReader(utf16Encode(t, bad)))
	if err == nil {
		t.Fatalf("Parse(...): expected error for an invalid Version attribute")
	}
}
