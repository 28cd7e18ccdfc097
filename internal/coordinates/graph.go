package coordinates

import "github.com/banshee-data/cherenkov.pipe/internal/pipeerr"

// TransformTo converts p into target. Tilted targets need pointing; for
// other targets pointing is ignored.
//
// Transforms are routed through the ground frame, the only frame with an
// edge to every other frame. Same-frame requests take the identity edge,
// except tilted to tilted with a different pointing which goes via ground.
func TransformTo(p PointCloud, target Frame, pointing *AltAz) (PointCloud, error) {
	if target == TiltedGround && pointing == nil {
		return PointCloud{}, pipeerr.New(pipeerr.CodeValue, "transform to TiltedGroundFrame needs a pointing direction")
	}

	if p.Frame == target {
		switch target {
		case Ground:
			return GroundToGround(p), nil
		case EastingNorthing:
			return p, nil
		case TiltedGround:
			if p.Pointing != nil && *p.Pointing == *pointing {
				return p, nil
			}
		}
	}

	ground, err := toGround(p)
	if err != nil {
		return PointCloud{}, err
	}
	return fromGround(ground, target, pointing)
}

func toGround(p PointCloud) (PointCloud, error) {
	switch p.Frame {
	case Ground:
		return GroundToGround(p), nil
	case TiltedGround:
		return TiltedToGround(p)
	case EastingNorthing:
		return EastingNorthingToGround(p)
	default:
		return PointCloud{}, pipeerr.Newf(pipeerr.CodeValue, "no transform from %s", p.Frame)
	}
}

func fromGround(p PointCloud, target Frame, pointing *AltAz) (PointCloud, error) {
	switch target {
	case Ground:
		return GroundToGround(p), nil
	case TiltedGround:
		return GroundToTilted(p, *pointing)
	case EastingNorthing:
		return GroundToEastingNorthing(p)
	default:
		return PointCloud{}, pipeerr.Newf(pipeerr.CodeValue, "no transform to %s", target)
	}
}
