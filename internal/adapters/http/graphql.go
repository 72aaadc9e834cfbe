package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/geowerks/specklegeo/internal/core/domain"
	"github.com/geowerks/specklegeo/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to the conversion service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	modelInfoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ModelInfo",
		Fields: graphql.Fields{
			"project":        &graphql.Field{Type: graphql.String},
			"model":          &graphql.Field{Type: graphql.String},
			"version_id":     &graphql.Field{Type: graphql.String},
			"root_object_id": &graphql.Field{Type: graphql.String},
		},
	})

	featureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Feature",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.Feature).ID, nil
				},
			},
			"fid": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.Feature).Properties["FID"], nil
				},
			},
			"speckle_type": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.Feature).Properties["speckle_type"], nil
				},
			},
			"geometry_type": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return string(p.Source.(domain.Feature).Geometry.Type), nil
				},
			},
			// GeoJSON geometry object, serialized. Keeps the schema flat
			// instead of modelling four coordinate shapes.
			"geometry": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					b, err := json.Marshal(p.Source.(domain.Feature).Geometry)
					if err != nil {
						return nil, err
					}
					return string(b), nil
				},
			},
		},
	})

	collectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FeatureCollection",
		Fields: graphql.Fields{
			"project": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.FeatureCollection).Project, nil
				},
			},
			"model": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.FeatureCollection).Model, nil
				},
			},
			"target_crs": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.FeatureCollection).TargetCRS, nil
				},
			},
			"number_returned": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.FeatureCollection).NumberReturned, nil
				},
			},
			"features": &graphql.Field{
				Type: graphql.NewList(featureType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.FeatureCollection).Features, nil
				},
			},
		},
	})

	floatArg := func(p graphql.ResolveParams, name string) *float64 {
		if v, ok := p.Args[name]; ok {
			if f, ok := v.(float64); ok {
				return &f
			}
		}
		return nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"modelInfo": &graphql.Field{
				Type:        modelInfoType,
				Description: "Resolve a model URL to project, model, and root object",
				Args: graphql.FieldConfigArgument{
					"speckleUrl": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Conversions.ModelInfo(p.Context, p.Args["speckleUrl"].(string))
				},
			},
			"features": &graphql.Field{
				Type:        collectionType,
				Description: "Convert a model into a GeoJSON feature collection",
				Args: graphql.FieldConfigArgument{
					"speckleUrl":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":        &graphql.ArgumentConfig{Type: graphql.Int},
					"crsAuthid":    &graphql.ArgumentConfig{Type: graphql.String},
					"lat":          &graphql.ArgumentConfig{Type: graphql.Float},
					"lon":          &graphql.ArgumentConfig{Type: graphql.Float},
					"northDegrees": &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					req := usecases.ConversionRequest{
						ModelURL: p.Args["speckleUrl"].(string),
					}
					if v, ok := p.Args["limit"].(int); ok {
						req.Limit = &v
					}
					if v, ok := p.Args["crsAuthid"].(string); ok {
						req.Anchor.CRSAuthID = v
					}
					req.Anchor.Lat = floatArg(p, "lat")
					req.Anchor.Lon = floatArg(p, "lon")
					req.Anchor.NorthDegrees = floatArg(p, "northDegrees")
					return deps.Conversions.Convert(p.Context, req)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
