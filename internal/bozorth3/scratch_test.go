package bozorth3

import "testing"

func TestEndpointAssociator(t *testing.T) {
	associator := NewEndpointAssociator()

	if _, ok := associator.GalleryFor(2); ok {
		t.Fatal("expected no association for fresh probe endpoint")
	}

	associator.Associate(2, 5)

	if gallery, ok := associator.GalleryFor(2); !ok || gallery != 5 {
		t.Errorf("GalleryFor(2) = %d, %v, want 5, true", gallery, ok)
	}
	if probe, ok := associator.ProbeFor(5); !ok || probe != 2 {
		t.Errorf("ProbeFor(5) = %d, %v, want 2, true", probe, ok)
	}

	// Endpoint 0 must be distinguishable from "unset".
	associator.Associate(0, 0)
	if probe, ok := associator.ProbeFor(0); !ok || probe != 0 {
		t.Errorf("ProbeFor(0) = %d, %v, want 0, true", probe, ok)
	}

	associator.ClearByProbe(2)
	if _, ok := associator.GalleryFor(2); ok {
		t.Error("expected association cleared by probe")
	}
	if _, ok := associator.ProbeFor(5); ok {
		t.Error("expected gallery side cleared too")
	}

	// Clearing an unassociated endpoint is a no-op.
	associator.ClearByProbe(7)
}

func TestAreClearOrMutuallyAssociated(t *testing.T) {
	associator := NewEndpointAssociator()

	if !associator.AreClearOrMutuallyAssociated(2, 5) {
		t.Error("both clear: want true")
	}

	associator.Associate(2, 5)

	if !associator.AreClearOrMutuallyAssociated(2, 5) {
		t.Error("mutually associated: want true")
	}
	if associator.AreClearOrMutuallyAssociated(2, 6) {
		t.Error("probe taken by another gallery: want false")
	}
	if associator.AreClearOrMutuallyAssociated(3, 5) {
		t.Error("gallery taken by another probe: want false")
	}
	if !associator.AreClearOrMutuallyAssociated(3, 6) {
		t.Error("unrelated endpoints: want true")
	}
}

func TestClusterAssigner(t *testing.T) {
	assigner := NewClusterAssigner()

	if _, ok := assigner.Cluster(3); ok {
		t.Fatal("fresh slot should have no cluster")
	}

	assigner.Assign(3, 7)
	if cluster, ok := assigner.Cluster(3); !ok || cluster != 7 {
		t.Errorf("Cluster(3) = %d, %v, want 7, true", cluster, ok)
	}
	if !assigner.Has(3, 7) {
		t.Error("Has(3, 7) = false, want true")
	}
	if assigner.Has(3, 6) {
		t.Error("Has(3, 6) = true, want false")
	}

	// Cluster index 0 must be distinguishable from "unset".
	assigner.Assign(4, 0)
	if cluster, ok := assigner.Cluster(4); !ok || cluster != 0 {
		t.Errorf("Cluster(4) = %d, %v, want 0, true", cluster, ok)
	}
}

func TestClusterAssignerRestoreStillReadsAssigned(t *testing.T) {
	// A restored pair keeps reading as assigned: the growth loop must not
	// reseed pairs that already failed to form a cluster.
	assigner := NewClusterAssigner()

	assigner.Assign(3, 7)
	assigner.Restore(3)

	if _, ok := assigner.Cluster(3); !ok {
		t.Error("restored pair should still read as assigned")
	}
	for cluster := 0; cluster < 5; cluster++ {
		if assigner.Has(3, cluster) {
			t.Errorf("restored pair should not Has(%d)", cluster)
		}
	}

	assigner.Clear()
	if _, ok := assigner.Cluster(3); ok {
		t.Error("Clear should reset restored slots")
	}
}
