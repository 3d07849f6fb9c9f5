package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the analysis service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geometryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PointGeometry",
		Fields: graphql.Fields{
			"type": &graphql.Field{Type: graphql.String},
			"coordinates": &graphql.Field{
				Type:        graphql.NewList(graphql.Float),
				Description: "[longitude, latitude] in decimal degrees",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					g := p.Source.(domain.PointGeometry)
					return []float64{float64(g.Coordinates[0]), float64(g.Coordinates[1])}, nil
				},
			},
		},
	})

	featureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Feature",
		Fields: graphql.Fields{
			"type":     &graphql.Field{Type: graphql.String},
			"geometry": &graphql.Field{Type: geometryType},
		},
	})

	snapshotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FilteredSnapshot",
		Fields: graphql.Fields{
			"timestamp": &graphql.Field{Type: graphql.String},
			"data":      &graphql.Field{Type: graphql.NewList(featureType)},
		},
	})

	failureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RecordFailure",
		Fields: graphql.Fields{
			"timestamp": &graphql.Field{Type: graphql.String},
			"error":     &graphql.Field{Type: graphql.String},
		},
	})

	reportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RunReport",
		Fields: graphql.Fields{
			"run_id":    &graphql.Field{Type: graphql.String},
			"start":     &graphql.Field{Type: graphql.String},
			"end":       &graphql.Field{Type: graphql.String},
			"snapshots": &graphql.Field{Type: graphql.NewList(snapshotType)},
			"failures":  &graphql.Field{Type: graphql.NewList(failureType)},
			"processed": &graphql.Field{Type: graphql.Int},
			"empty":     &graphql.Field{Type: graphql.Int},
		},
	})

	filterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DensityFilter",
		Fields: graphql.Fields{
			"neighbors":     &graphql.Field{Type: graphql.Int},
			"radius_meters": &graphql.Field{Type: graphql.Float},
		},
	})

	rangeArgs := graphql.FieldConfigArgument{
		"start": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"end":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"snapshots": &graphql.Field{
				Type:        graphql.NewList(snapshotType),
				Description: "Dense points per snapshot in a time range",
				Args:        rangeArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					report, err := deps.Analysis.Run(p.Context, p.Args["start"].(string), p.Args["end"].(string))
					if err != nil {
						return nil, err
					}
					return report.Snapshots, nil
				},
			},
			"run": &graphql.Field{
				Type:        reportType,
				Description: "Full report of a run over a time range",
				Args:        rangeArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Analysis.Run(p.Context, p.Args["start"].(string), p.Args["end"].(string))
				},
			},
			"filter": &graphql.Field{
				Type:        filterType,
				Description: "Active density filter parameters",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f := deps.Analysis.Filter()
					return map[string]interface{}{
						"neighbors":     f.Neighbors,
						"radius_meters": float64(f.RadiusMeters),
					}, nil
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
		// Programming error in the schema definition
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
			return errBadRequest(c, "invalid request body")
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
