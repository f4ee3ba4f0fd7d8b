package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

func TestDetectionRunner_CallsEachDetectorOnce(t *testing.T) {
	knee := &fakeDetector{candidates: []entity.Candidate{candidate("mild", 0.4), candidate("acl", 0.7)}}
	spine := &fakeDetector{}
	heel := &fakeDetector{err: errors.New("model crashed")}
	wrist := &fakeDetector{panicMsg: "cgo abort"}

	runner := NewDetectionRunner(map[entity.BodyPart]port.Detector{
		entity.BodyPartKnee:  knee,
		entity.BodyPartSpine: spine,
		entity.BodyPartHeel:  heel,
		entity.BodyPartWrist: wrist,
	}, discardLogger())

	set := runner.Run(context.Background(), []byte("img"))

	require.Equal(t, 1, knee.calls)
	require.Equal(t, 1, spine.calls)
	require.Equal(t, 1, heel.calls)
	require.Equal(t, 1, wrist.calls)

	require.Len(t, set, 1)
	require.Equal(t, "acl", set[entity.BodyPartKnee].ClassLabel)
	require.Equal(t, 0.7, set[entity.BodyPartKnee].Confidence)
	require.Equal(t, entity.BodyPartKnee, set[entity.BodyPartKnee].BodyPart)
}

func TestTopCandidate_FirstWinsOnTie(t *testing.T) {
	best, ok := topCandidate([]entity.Candidate{candidate("a", 0.5), candidate("b", 0.5)})
	require.True(t, ok)
	require.Equal(t, "a", best.ClassName)

	_, ok = topCandidate(nil)
	require.False(t, ok)
}

func TestSelectBest_MaxConfidence(t *testing.T) {
	set := DetectionSet{
		entity.BodyPartKnee:  {ClassLabel: "mild", Confidence: 0.3, BodyPart: entity.BodyPartKnee},
		entity.BodyPartHeel:  {ClassLabel: "heel spur", Confidence: 0.9, BodyPart: entity.BodyPartHeel},
		entity.BodyPartWrist: {ClassLabel: "fracture", Confidence: 0.6, BodyPart: entity.BodyPartWrist},
	}
	best, ok := SelectBest(set)
	require.True(t, ok)
	require.Equal(t, entity.BodyPartHeel, best.BodyPart)
	require.Equal(t, "heel spur", best.ClassLabel)
}

func TestSelectBest_TieFirstBodyPartWins(t *testing.T) {
	set := DetectionSet{
		entity.BodyPartWrist: {ClassLabel: "fracture", Confidence: 0.8, BodyPart: entity.BodyPartWrist},
		entity.BodyPartSpine: {ClassLabel: "scoliosis", Confidence: 0.8, BodyPart: entity.BodyPartSpine},
		entity.BodyPartHeel:  {ClassLabel: "sever", Confidence: 0.8, BodyPart: entity.BodyPartHeel},
	}
	best, ok := SelectBest(set)
	require.True(t, ok)
	require.Equal(t, entity.BodyPartSpine, best.BodyPart)
}

func TestSelectBest_ZeroConfidenceIsNormal(t *testing.T) {
	set := DetectionSet{
		entity.BodyPartKnee:  {ClassLabel: "mild", Confidence: 0, BodyPart: entity.BodyPartKnee},
		entity.BodyPartSpine: {ClassLabel: "scoliosis", Confidence: 0, BodyPart: entity.BodyPartSpine},
	}
	_, ok := SelectBest(set)
	require.False(t, ok)

	_, ok = SelectBest(DetectionSet{})
	require.False(t, ok)
}
